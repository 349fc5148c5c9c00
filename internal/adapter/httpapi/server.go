// Package httpapi exposes the service over HTTP: operational endpoints plus
// the API the PWA backend calls for queueing, syncing, map queries, and
// verification.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/cluster"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/queue"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/syncer"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/verify"
)

const maxAttachmentBytes = 32 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SyncRunner is the coordinator surface the API needs.
type SyncRunner interface {
	Synchronize(ctx context.Context) syncer.Result
	Progress() syncer.Progress
	Busy() bool
}

// ConnectivitySource reports the current online state.
type ConnectivitySource interface {
	Online() bool
}

// ClusterProvider serves map cluster and grouping queries.
type ClusterProvider interface {
	Clusters(b cluster.Bounds, zoom int) []cluster.Node
	Expand(clusterID uint64) []domain.ReportFeature
	Groups() []cluster.DistrictGroup
}

// ReportVerifier merges selected reports into a verified disaster.
type ReportVerifier interface {
	Verify(ctx context.Context, reportIDs []string) (string, error)
}

// Server wires every route onto a stdlib mux.
type Server struct {
	httpServer *http.Server
	store      queue.Store
	sync       SyncRunner
	conn       ConnectivitySource
	clusters   ClusterProvider
	verifier   ReportVerifier
	logger     *slog.Logger
}

func NewServer(
	addr string,
	store queue.Store,
	sync SyncRunner,
	conn ConnectivitySource,
	clusters ClusterProvider,
	verifier ReportVerifier,
	ready ReadinessChecker,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    store,
		sync:     sync,
		conn:     conn,
		clusters: clusters,
		verifier: verifier,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/reports", s.handleEnqueueReport)
	mux.HandleFunc("POST /api/attachments", s.handleEnqueueAttachment)
	mux.HandleFunc("GET /api/clusters", s.handleClusters)
	mux.HandleFunc("GET /api/clusters/{id}/reports", s.handleExpand)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("POST /api/verify", s.handleVerify)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleStatus reports the connectivity banner state: online flag, whether a
// drain is running, and its progress counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online":   s.conn.Online(),
		"syncing":  s.sync.Busy(),
		"progress": s.sync.Progress(),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res := s.sync.Synchronize(r.Context())
	writeJSON(w, http.StatusOK, res)
}

type enqueueResponse struct {
	LocalID int64 `json:"localId"`
}

// handleEnqueueReport accepts a report document, with an optional
// attachmentIds list of previously queued attachments, and stores it in the
// durable queue.
func (s *Server) handleEnqueueReport(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode report: %w", err))
		return
	}

	var attachmentIDs []int64
	if raw, ok := payload["attachmentIds"].([]any); ok {
		for _, v := range raw {
			n, ok := v.(float64)
			if !ok {
				writeError(w, http.StatusBadRequest, errors.New("attachmentIds must be numbers"))
				return
			}
			attachmentIDs = append(attachmentIDs, int64(n))
		}
		delete(payload, "attachmentIds")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.store.EnqueueReport(r.Context(), body, attachmentIDs)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enqueueResponse{LocalID: id})
}

// handleEnqueueAttachment accepts a multipart upload with a "file" part and a
// "userId" form value.
func (s *Server) handleEnqueueAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	userID := r.FormValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read file part: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read attachment: %w", err))
		return
	}

	id, err := s.store.EnqueueAttachment(r.Context(), data, header.Filename, userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enqueueResponse{LocalID: id})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bounds := cluster.WorldBounds()
	for _, f := range []struct {
		key  string
		dest *float64
	}{
		{"minLat", &bounds.MinLat},
		{"minLon", &bounds.MinLon},
		{"maxLat", &bounds.MaxLat},
		{"maxLon", &bounds.MaxLon},
	} {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", f.key, err))
			return
		}
		*f.dest = v
	}

	zoom := cluster.DefaultMaxZoom
	if raw := q.Get("zoom"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid zoom: %w", err))
			return
		}
		zoom = v
	}

	nodes := s.clusters.Clusters(bounds, zoom)
	if nodes == nil {
		nodes = []cluster.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid cluster id: %w", err))
		return
	}
	features := s.clusters.Expand(id)
	if features == nil {
		features = []domain.ReportFeature{}
	}
	writeJSON(w, http.StatusOK, features)
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.clusters.Groups()
	if groups == nil {
		groups = []cluster.DistrictGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

type verifyRequest struct {
	ReportIDs []string `json:"reportIds"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode verify request: %w", err))
		return
	}

	id, err := s.verifier.Verify(r.Context(), req.ReportIDs)
	switch {
	case errors.Is(err, verify.ErrEmptySelection):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, verify.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		s.logger.Error("verification failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, queue.ErrStorageUnavailable) {
		s.logger.Error("local queue unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
