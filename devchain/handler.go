package devchain

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tzstamp/tzstamp/chain"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/rpc"
)

// Handler serves the node block header routes:
//
//	GET /chains/{network}/blocks/{hash}/header
//	GET /chains/{network}/blocks/{hash}/header/raw
func (c *Chain) Handler() http.Handler {
	return http.HandlerFunc(c.serveHeader)
}

func (c *Chain) serveHeader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	// chains / {network} / blocks / {hash} / header [/ raw]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 5 || len(parts) > 6 || parts[0] != "chains" || parts[2] != "blocks" || parts[4] != "header" {
		http.NotFound(w, r)

		return
	}

	raw := len(parts) == 6
	if raw && parts[5] != "raw" {
		http.NotFound(w, r)

		return
	}

	block, err := c.block(parts[1], parts[3])

	switch {
	case errors.Is(err, rpc.ErrBlockNotFound):
		http.NotFound(w, r)

		return
	case errors.Is(err, chain.ErrInvalidBlockHash):
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	var resp interface{} = block.Header(c.network)
	if raw {
		resp = hex.EncodeToString(block.Raw)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.logger.Error("failed to write header", "err", err)
	}
}
