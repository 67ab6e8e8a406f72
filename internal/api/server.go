package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ankigen/internal/export"
	"ankigen/internal/models"
	"ankigen/internal/notify"
	"ankigen/internal/services"
)

const downloadPath = "/api/export/download"

// Generator produces deck rows for a request.
type Generator interface {
	GenerateWithProgress(ctx context.Context, req services.GenerateRequest, notifier notify.Notifier, progress services.ProgressCallback) ([]models.Row, error)
}

type Server struct {
	mux        *http.ServeMux
	generator  Generator
	exporter   *export.Exporter
	sink       export.Sink
	defaultKey string
	jobs       *JobManager
	logger     *zap.Logger

	// exportMu serializes writes to the single export artifact.
	exportMu sync.Mutex
}

// ExportResult is the response body of an export request.
type ExportResult struct {
	Exported bool             `json:"exported"`
	Artifact *export.Artifact `json:"artifact,omitempty"`
	Notices  []notify.Notice  `json:"notices"`
	Download string           `json:"download,omitempty"`
}

// NewServer wires the HTTP API. defaultKey is used for generation requests
// that do not carry their own API key.
func NewServer(generator Generator, exporter *export.Exporter, sink export.Sink, defaultKey string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mux:        http.NewServeMux(),
		generator:  generator,
		exporter:   exporter,
		sink:       sink,
		defaultKey: strings.TrimSpace(defaultKey),
		jobs:       NewJobManager(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/generate/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc(downloadPath, s.handleDownload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload generateRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	payload.normalize()
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	apiKey := payload.APIKey
	if apiKey == "" {
		apiKey = s.defaultKey
	}
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingAPIKey.Error())
		return
	}

	req := services.GenerateRequest{
		APIKey:        apiKey,
		Subject:       payload.Subject,
		TopicCount:    payload.TopicCount,
		CardsPerTopic: payload.CardsPerTopic,
		Preferences:   payload.Preferences,
	}

	jobID, snapshot := s.jobs.CreateJob(req.Subject)
	go s.runGenerationJob(context.Background(), jobID, req)

	writeJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/generate/jobs/")
	jobID = strings.Trim(jobID, "/")
	if jobID == "" {
		http.NotFound(w, r)
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) runGenerationJob(ctx context.Context, jobID string, req services.GenerateRequest) {
	log := s.logger.With(zap.String("job_id", jobID), zap.String("subject", req.Subject))
	defer func() {
		if r := recover(); r != nil {
			log.Error("generation job panicked", zap.Any("panic", r))
			s.jobs.MarkFailed(jobID, "internal error")
		}
	}()

	s.jobs.MarkProcessing(jobID)
	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}
	notifier := notify.Multi(s.jobs.Notifier(jobID), notify.NewLog(log))

	rows, err := s.generator.GenerateWithProgress(ctx, req, notifier, progress)
	if err != nil {
		log.Error("generation job failed", zap.Error(err))
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}
	s.jobs.MarkCompleted(jobID, rows)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload exportRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	recorder := &notify.Recorder{}
	notifier := notify.Multi(recorder, notify.NewLog(s.logger))

	s.exportMu.Lock()
	artifact, err := s.exporter.Export(payload.Rows, notifier)
	s.exportMu.Unlock()
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := ExportResult{
		Exported: artifact != nil,
		Artifact: artifact,
		Notices:  recorder.Notices(),
	}
	if artifact != nil {
		result.Download = downloadPath
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	name := s.exporter.Filename()
	src, err := s.sink.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "nothing has been exported yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer src.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, src); err != nil {
		s.logger.Warn("download interrupted", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
