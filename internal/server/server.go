// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"netforensic/internal/analysis"
	"netforensic/internal/logging"
	"netforensic/internal/models"
	"netforensic/internal/reporting"
	"netforensic/internal/retention"
	"netforensic/internal/store"
	"netforensic/internal/tshark"
)

// maxReportRequestBytes bounds the JSON body accepted by /generate_report.
const maxReportRequestBytes = 32 << 20

// Options holds the HTTP-level settings.
type Options struct {
	MaxUploadBytes          int64
	GenerateReportOnAnalyze bool
}

// Server wires the store, pipeline, report generator and sweeper to HTTP
// handlers.
type Server struct {
	opts     Options
	store    *store.Store
	analyzer *analysis.Analyzer
	reports  *reporting.Generator
	sweeper  *retention.Sweeper
	logger   *slog.Logger
	handler  http.Handler
}

// New creates a Server.
func New(opts Options, st *store.Store, an *analysis.Analyzer, gen *reporting.Generator, sw *retention.Sweeper, logger *slog.Logger) *Server {
	s := &Server{
		opts:     opts,
		store:    st,
		analyzer: an,
		reports:  gen,
		sweeper:  sw,
		logger:   logging.Component(logger, "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /generate_report", s.handleGenerateReport)
	mux.HandleFunc("GET /reports/{name}", s.handleReport)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.logRequests(withCORS(mux))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.sweeper.Wait()
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	defer s.sweeper.Trigger()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, err, "Upload too large")
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Missing capture file in form field \"file\"."})
		return
	}
	defer file.Close()

	session, err := s.store.Save(header.Filename, file)
	if err != nil {
		s.writeError(w, err, "Upload rejected")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), session)
	if err != nil {
		s.writeError(w, err, "Analysis failed")
		return
	}

	if s.opts.GenerateReportOnAnalyze {
		// A report failure doesn't invalidate the analysis: it is logged by
		// the generator and the result goes out without a link.
		if err := s.reports.WriteFile(s.store.ReportPath(session.StoredName), result); err == nil {
			result.ReportURL = "/reports/" + store.ReportName(session.StoredName)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	defer s.sweeper.Trigger()

	var result models.AnalysisResult
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportRequestBytes))
	if err := dec.Decode(&result); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Invalid analysis result: " + err.Error()})
		return
	}
	if result.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Analysis result has no filename."})
		return
	}

	name := result.StoredName
	if name == "" {
		name = result.Filename
	}
	path := s.store.ReportPath(name)
	if err := s.reports.WriteFile(path, &result); err != nil {
		s.writeError(w, err, "Report generation failed")
		return
	}

	s.serveAttachment(w, r, path, reporting.DownloadName(&result))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, err := s.store.LookupReport(name)
	if err != nil {
		s.writeError(w, err, "Report not found")
		return
	}
	s.serveAttachment(w, r, path, name)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) serveAttachment(w http.ResponseWriter, r *http.Request, path, downloadName string) {
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, store.ErrNotFound, "Report not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, err, "Report unavailable")
		return
	}

	if mtype, err := mimetype.DetectFile(path); err == nil {
		w.Header().Set("Content-Type", mtype.String())
	}
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	http.ServeContent(w, r, downloadName, info.ModTime(), f)
}

type errorBody struct {
	Detail string `json:"detail"`
}

// writeError maps a pipeline error onto a status code and a JSON detail.
func (s *Server) writeError(w http.ResponseWriter, err error, prefix string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(prefix, "error", err)
	} else {
		s.logger.Debug(prefix, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: fmt.Sprintf("%s: %v", prefix, err)})
}

func statusFor(err error) int {
	var (
		invalid    *store.InvalidInputError
		tooLarge   *http.MaxBytesError
		invocation *tshark.InvocationError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invocation) && invocation.TimedOut():
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
