// Package api serves the read-only publication status API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/publish/store"
)

const publicationsPath = "/v1/publications"

// Server exposes publication records and process health over HTTP.
type Server struct {
	addr    string
	records store.Store
	server  *http.Server
	logger  *logging.Logger
}

// NewServer creates the status API server.
func NewServer(addr string, records store.Store, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		records: records,
		logger:  logger,
	}
}

// routes builds the handler mux. Split out so tests can serve it directly.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(publicationsPath, s.handleList)
	mux.HandleFunc(publicationsPath+"/", s.handleGet)
	return mux
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting status API server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status API server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping status API server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleList handles GET /v1/publications with optional symbol and status
// query filters.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(publicationsPath, status, time.Since(start))
	}()

	if r.Method != http.MethodGet {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	symbol := r.URL.Query().Get("symbol")
	statusFilter := r.URL.Query().Get("status")

	var (
		records []*store.PublicationRecord
		err     error
	)
	switch {
	case statusFilter != "":
		st := store.Status(strings.ToUpper(statusFilter))
		if !st.Valid() {
			status = "400"
			http.Error(w, fmt.Sprintf("unknown status %q", statusFilter), http.StatusBadRequest)
			return
		}
		records, err = s.records.ListByStatus(ctx, st)
		if err == nil && symbol != "" {
			records = filterBySymbol(records, symbol)
		}
	case symbol != "":
		records, err = s.records.ListBySymbol(ctx, symbol)
	default:
		records, err = s.listAll(ctx)
	}
	if err != nil {
		status = "500"
		s.logger.Error("Failed to list publications", "error", err.Error())
		http.Error(w, "failed to list publications", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*store.PublicationRecord{}
	}

	s.sendJSON(w, records)
}

// handleGet handles GET /v1/publications/{commitment}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(publicationsPath+"/{commitment}", status, time.Since(start))
	}()

	if r.Method != http.MethodGet {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	commitment := strings.TrimPrefix(r.URL.Path, publicationsPath+"/")
	if commitment == "" || strings.Contains(commitment, "/") {
		status = "404"
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := s.records.Get(ctx, commitment)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			status = "404"
			http.Error(w, "publication not found", http.StatusNotFound)
			return
		}
		status = "500"
		s.logger.Error("Failed to load publication", "commitment", commitment, "error", err.Error())
		http.Error(w, "failed to load publication", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, rec)
}

// listAll concatenates records across all lifecycle states, in-flight first.
func (s *Server) listAll(ctx context.Context) ([]*store.PublicationRecord, error) {
	all := make([]*store.PublicationRecord, 0)
	for _, st := range []store.Status{
		store.StatusPending,
		store.StatusSubmitted,
		store.StatusConfirmed,
		store.StatusFailed,
	} {
		records, err := s.records.ListByStatus(ctx, st)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func filterBySymbol(records []*store.PublicationRecord, symbol string) []*store.PublicationRecord {
	filtered := make([]*store.PublicationRecord, 0, len(records))
	for _, rec := range records {
		if rec.Symbol == symbol {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err.Error())
	}
}
