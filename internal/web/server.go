package web

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/AlfilAlex/taller-upy/internal/metrics"
	"github.com/AlfilAlex/taller-upy/internal/service"
	"github.com/AlfilAlex/taller-upy/internal/uploads"
)

type Server struct {
	service   *service.LotService
	signer    uploads.Signer
	db        *sql.DB
	metrics   *metrics.Metrics
	jwtSecret string
	mux       *http.ServeMux
	logger    *slog.Logger
}

func NewServer(svc *service.LotService, signer uploads.Signer, db *sql.DB, jwtSecret string, logger *slog.Logger) *Server {
	s := &Server{
		service:   svc,
		signer:    signer,
		db:        db,
		metrics:   metrics.New(),
		jwtSecret: jwtSecret,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /lots", s.requireAuth(s.handlePublishLot))
	s.mux.HandleFunc("GET /lots", s.handleListLots)
	s.mux.HandleFunc("GET /lots/mine", s.requireAuth(s.handleMyLots))
	s.mux.HandleFunc("GET /lots/{lotId}", s.handleGetLot)
	s.mux.HandleFunc("PUT /lots/{lotId}/reserve", s.requireAuth(s.handleReserveLot))
	s.mux.HandleFunc("GET /reservations", s.requireAuth(s.handleMyReservations))
	s.mux.HandleFunc("POST /uploads/presign", s.requireAuth(s.handlePresignUploads))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.observe(s.mux).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
