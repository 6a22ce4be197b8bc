// Package httpapi exposes the secure file operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/logging"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/dmitrijs2005/securefiles/internal/server/services"
)

// FileService is the subset of services.SecureFileService the handlers use.
type FileService interface {
	Store(ctx context.Context, req services.StoreRequest) (*models.SecureFile, error)
	StoreReplacingCategory(ctx context.Context, req services.StoreRequest) (*models.SecureFile, error)
	Fetch(ctx context.Context, id, requesterID string) (*models.SecureFile, []byte, error)
	GetRecord(ctx context.Context, id string) (*models.SecureFile, error)
	SetVisibility(ctx context.Context, id string, v models.Visibility) error
}

type HTTPServer struct {
	address       string
	files         FileService
	logger        logging.Logger
	jwtSecret     []byte
	maxUploadSize int64
	metrics       http.Handler
}

func NewHTTPServer(a string, l logging.Logger, fs FileService, secretKey string, maxUploadSize int64, metrics http.Handler) *HTTPServer {
	return &HTTPServer{
		address:       a,
		logger:        l.With("module", "http_server"),
		files:         fs,
		jwtSecret:     []byte(secretKey),
		maxUploadSize: maxUploadSize,
		metrics:       metrics,
	}
}

// Handler returns the routed handler with the requester middleware applied
// to the file routes.
func (s *HTTPServer) Handler() http.Handler {
	files := http.NewServeMux()
	files.HandleFunc("POST /files", s.handleStore)
	files.HandleFunc("GET /files/{id}", s.handleFetch)
	files.HandleFunc("GET /files/{id}/meta", s.handleMeta)
	files.HandleFunc("PATCH /files/{id}/visibility", s.handleSetVisibility)

	mux := http.NewServeMux()
	mux.Handle("/files", s.requesterMiddleware(files))
	mux.Handle("/files/", s.requesterMiddleware(files))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
