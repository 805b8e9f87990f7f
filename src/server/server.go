package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/model"
)

// RecordReader is the read-only slice of the audit trail exposed over HTTP.
type RecordReader interface {
	FindRecent(ctx context.Context, limit int) ([]model.ExecutionRecord, error)
	FindUnprotected(ctx context.Context, limit int) ([]model.ExecutionRecord, error)
}

// NewRouter builds the operator-facing HTTP surface: a healthcheck plus
// read-only views over recent executions.
func NewRouter(records RecordReader) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Get("/executions", func(w http.ResponseWriter, req *http.Request) {
		writeRecords(w, req, records.FindRecent)
	})

	r.Get("/executions/unprotected", func(w http.ResponseWriter, req *http.Request) {
		writeRecords(w, req, records.FindUnprotected)
	})

	return r
}

func writeRecords(w http.ResponseWriter, req *http.Request, fetch func(context.Context, int) ([]model.ExecutionRecord, error)) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	recs, err := fetch(req.Context(), limit)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch execution records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		logger.WithError(err).Error("Failed to encode execution records")
	}
}

// StartServer runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, port string, records RecordReader) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(records),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
