package proof

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidTemplate      = errors.New("invalid proof template")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnsupportedVersion   = errors.New("unsupported proof version")
	ErrMismatchedHash       = errors.New("mismatched hash")
	ErrAffixedTerminal      = errors.New("affixed proof cannot be extended")
	ErrMisplacedAffix       = errors.New("affix operation must be the last operation")
	ErrInvalidRemote        = errors.New("invalid remote proof locator")
	ErrRemoteNotFound       = errors.New("remote proof not found")
	ErrRemotePending        = errors.New("remote proof not yet available")
	ErrFetchFailed          = errors.New("failed to fetch remote proof")
	ErrNilProof             = errors.New("nil proof")
)

// FetchError is returned when a remote proof request completes with a status other than 200
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the status code to ErrRemoteNotFound, ErrRemotePending or ErrFetchFailed
func (e *FetchError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrRemoteNotFound
	case http.StatusAccepted:
		return ErrRemotePending
	default:
		return ErrFetchFailed
	}
}
