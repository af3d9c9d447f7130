// Package statusapi exposes a read-only HTTP surface over the blob
// service's firmware and version state, for operators and monitoring —
// it never accepts a blob operation itself, since the wire protocol is
// carried entirely over the IPMI/OEM framing layer (out of scope here).
package statusapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/blobflashd/internal/logger"
	"github.com/marmos91/blobflashd/pkg/audit"
	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// Server owns the chi router and the dependencies its handlers read from.
type Server struct {
	dispatcher *blobsvc.Dispatcher
	auditStore *audit.Store // may be nil if audit is disabled
	startTime  time.Time
	handler    http.Handler
}

// New builds a Server. auditStore may be nil, in which case GET /v1/audit
// reports 503.
func New(dispatcher *blobsvc.Dispatcher, auditStore *audit.Store) *Server {
	s := &Server{
		dispatcher: dispatcher,
		auditStore: auditStore,
		startTime:  time.Now(),
	}
	s.handler = s.newRouter()
	return s
}

// ServeHTTP lets Server be used directly as an http.Handler, e.g. with
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/audit", s.handleAudit)
	})

	return r
}

// requestLogger logs request completion at Debug for /healthz (to avoid
// polling noise) and Info otherwise, mirroring the controlplane API's
// request logging split.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		}
		if r.URL.Path == "/healthz" {
			logger.Debug("status api request completed", args...)
		} else {
			logger.Info("status api request completed", args...)
		}
	})
}

// healthzResponse is the body of GET /healthz.
type healthzResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_sec"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(s.startTime).Seconds()),
	})
}

// versionBlobState reports one configured version blob's cached status.
type versionBlobState struct {
	BlobID string `json:"blob_id"`
	Status string `json:"status"`
}

// stateResponse is the body of GET /v1/state.
type stateResponse struct {
	FirmwareState string             `json:"firmware_state"`
	VersionBlobs  []versionBlobState `json:"version_blobs"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		FirmwareState: s.dispatcher.Firmware().State().String(),
	}

	for _, id := range s.dispatcher.Version().GetBlobIds() {
		status, ok := s.dispatcher.Version().StatusOf(id)
		if !ok {
			continue
		}
		resp.VersionBlobs = append(resp.VersionBlobs, versionBlobState{
			BlobID: string(id),
			Status: status.String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// auditResponse is the body of GET /v1/audit.
type auditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeProblem(w, http.StatusServiceUnavailable, "audit trail is disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			limit = parsed
		}
	}

	entries, err := s.auditStore.Recent(limit)
	if err != nil {
		logger.Error("failed to read audit entries", "error", err)
		writeProblem(w, http.StatusInternalServerError, "failed to read audit entries")
		return
	}

	writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}
