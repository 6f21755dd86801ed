package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
	"github.com/tzstamp/tzstamp/storage"
)

// Aggregator accepts hashes and tracks which proofs are still pending
type Aggregator interface {
	Submit(hash []byte) (string, error)
	Pending(id string) bool
	ProofURL(id string) string
	Size() int
	Interval() time.Duration
}

// StampRequest is the body of a stamp request
type StampRequest struct {
	Data string `json:"data"`
}

// StampResponse points at the proof that will be produced for a stamp request
type StampResponse struct {
	URL string `json:"url"`
}

// StatusResponse describes the aggregator state
type StatusResponse struct {
	Network  string `json:"network"`
	Interval string `json:"interval"`
	Pending  int    `json:"pending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the stamping API
type Server struct {
	logger     hclog.Logger
	config     *Config
	aggregator Aggregator
	store      storage.Store
	extra      map[string]http.Handler

	lock       sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer creates the API server
func NewServer(logger hclog.Logger, config *Config, aggregator Aggregator, store storage.Store) *Server {
	return &Server{
		logger:     logger.Named("server"),
		config:     config,
		aggregator: aggregator,
		store:      store,
		extra:      make(map[string]http.Handler),
	}
}

// Mount serves handler under the path prefix. It must be called before Handler.
func (s *Server) Mount(prefix string, handler http.Handler) {
	s.extra[prefix] = handler
}

// Handler returns the API routes wrapped in the CORS and logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/stamp", s.handleStamp)
	mux.HandleFunc("/proof/", s.handleProof)
	mux.HandleFunc("/status", s.handleStatus)

	if s.config.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	for prefix, handler := range s.extra {
		mux.Handle(prefix, handler)
	}

	var handler http.Handler = mux

	handler = corsMiddleware(s.config.AccessControlAllowOrigin)(handler)
	handler = loggingMiddleware(s.logger)(handler)

	return handler
}

// ListenAndServe serves the API until Shutdown is called
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}

	return s.Serve(lis)
}

// Serve serves the API on lis until Shutdown is called
func (s *Server) Serve(lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		_ = lis.Close()

		return http.ErrServerClosed
	}

	s.httpServer = srv
	s.lock.Unlock()

	s.logger.Info("http server started", "addr", lis.Addr().String())

	return srv.Serve(lis)
}

// Shutdown gracefully stops the server. A server shut down before it
// started serving refuses to serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.lock.Lock()
	s.closed = true
	srv := s.httpServer
	s.lock.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}

func (s *Server) handleStamp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)

		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)

	data, err := readStampData(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	hash, err := hex.DecodeHash(data, MinHashLength, MaxHashLength)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid data: %w", err))

		return
	}

	id, err := s.aggregator.Submit(hash)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	s.writeJSON(w, http.StatusAccepted, &StampResponse{URL: s.aggregator.ProofURL(id)})
}

func readStampData(r *http.Request) (string, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch contentType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue("data"), nil
	default:
		var req StampRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}

		return req.Data, nil
	}
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)

		return
	}

	raw, err := hex.DecodeHash(strings.TrimPrefix(r.URL.Path, "/proof/"), MinHashLength, MaxHashLength)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid proof id: %w", err))

		return
	}

	id := hex.EncodeToString(raw)

	// a pending id may still have a proof from an earlier cycle
	if s.aggregator.Pending(id) {
		s.writeError(w, http.StatusAccepted, proof.ErrRemotePending)

		return
	}

	p, err := s.store.GetProof(id)

	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, p.Template())

	case !errors.Is(err, storage.ErrNotFound):
		s.logger.Error("failed to read proof", "id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to read proof"))

	default:
		s.writeError(w, http.StatusNotFound, proof.ErrRemoteNotFound)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)

		return
	}

	s.writeJSON(w, http.StatusOK, &StatusResponse{
		Network:  s.config.Network,
		Interval: s.aggregator.Interval().String(),
		Pending:  s.aggregator.Size(),
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, &errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "err", err)
	}
}
