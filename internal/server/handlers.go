package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/closeguard/closeguard/internal/engine"
	"github.com/closeguard/closeguard/internal/extract"
	"github.com/closeguard/closeguard/internal/reports"
	"github.com/closeguard/closeguard/internal/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// reportResponse is the external shape of a stored report.
type reportResponse struct {
	Status    string           `json:"status"`
	Flags     []engine.Finding `json:"flags"`
	Analytics engine.Analytics `json:"analytics"`
	Metadata  reports.Metadata `json:"metadata"`
}

// handleUpload accepts a multipart PDF upload with an optional JSON
// context field, runs the analysis and returns the new report ID.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	maxBytes := int64(s.config.Upload.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" && ct != "application/octet-stream" {
		writeError(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}

	// The extractor works from a path, so spool the upload to disk.
	tmp, err := os.CreateTemp("", "closeguard-*.pdf")
	if err != nil {
		log.Error("Failed to create temp file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		log.Error("Failed to spool upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process upload")
		return
	}

	content, err := extract.ExtractText(tmp.Name())
	if err != nil {
		log.Warn("Text extraction failed",
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, "could not extract text from PDF")
		return
	}

	// Context is optional; a malformed one is ignored rather than
	// failing the upload.
	var userCtx *engine.UserContext
	if raw := r.FormValue("context"); raw != "" {
		userCtx, err = engine.ParseUserContext([]byte(raw))
		if err != nil {
			log.Warn("Ignoring malformed user context", zap.Error(err))
			userCtx = nil
		}
	}

	result, cached := s.lookupCached(r, content.Text, userCtx)
	if !cached {
		analyzed := s.engine.Analyze(content.Text, userCtx)
		result = &analyzed
		s.storeCached(r, content.Text, userCtx, result)
	}

	processingMS := float64(time.Since(start).Microseconds()) / 1000

	report := &reports.Report{
		ID:        uuid.New().String(),
		Status:    "complete",
		Flags:     result.Flags,
		Analytics: result.Analytics,
		Metadata: reports.Metadata{
			Filename:     header.Filename,
			TextLength:   content.CharCount,
			UploadedAt:   start.UTC(),
			ProcessingMS: processingMS,
		},
		Context:   userCtx,
		CreatedAt: start.UTC(),
	}

	if err := s.store.Save(r.Context(), report); err != nil {
		log.Error("Failed to save report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}

	log.Info("Document analyzed",
		zap.String("report_id", report.ID),
		zap.String("filename", header.Filename),
		zap.Int("pages", content.PageCount),
		zap.Int("forensic_score", result.Analytics.ForensicScore),
		zap.Int("flags", result.Analytics.TotalFlags),
		zap.Bool("cache_hit", cached),
		zap.Float64("processing_ms", processingMS),
	)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeAnalysis,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.AnalysisEvent{
			ReportID:       report.ID,
			Filename:       header.Filename,
			ForensicScore:  result.Analytics.ForensicScore,
			TotalFlags:     result.Analytics.TotalFlags,
			HighSeverity:   result.Analytics.HighSeverity,
			MediumSeverity: result.Analytics.MediumSeverity,
			LowSeverity:    result.Analytics.LowSeverity,
			ProcessingMS:   processingMS,
		},
	})

	writeJSON(w, http.StatusOK, map[string]string{"report_id": report.ID})
}

// handleGetReport returns a stored report by ID.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("Failed to load report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		Status:    report.Status,
		Flags:     report.Flags,
		Analytics: report.Analytics,
		Metadata:  report.Metadata,
	})
}

// handleDeleteReport removes a stored report by ID.
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("Failed to delete report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "report_id": id})
}

// handleListReports returns summaries of all stored reports.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": summaries,
		"count":   len(summaries),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
		"uptime":    time.Since(s.started).String(),
	}
	writeJSON(w, http.StatusOK, health)
}

// handleInfo reports service configuration and runtime counters.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":            "CloseGuard",
		"version":         version,
		"active_rules":    s.engine.Catalog().Len(),
		"reports_backend": s.config.Reports.Backend,
		"cache_enabled":   s.cache != nil,
		"websocket": map[string]interface{}{
			"enabled":            s.config.WebSocket.Enabled,
			"active_connections": s.wsHub.Stats().ActiveConnections,
		},
	}
	if s.cache != nil {
		info["cache_stats"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, info)
}

// lookupCached consults the result cache when one is configured.
func (s *Server) lookupCached(r *http.Request, text string, userCtx *engine.UserContext) (*engine.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(r.Context(), text, userCtx)
}

// storeCached writes through to the result cache when one is
// configured. Cache failures never fail the request.
func (s *Server) storeCached(r *http.Request, text string, userCtx *engine.UserContext, result *engine.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(r.Context(), text, userCtx, result); err != nil {
		s.logger.Warn("Failed to cache analysis result", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
