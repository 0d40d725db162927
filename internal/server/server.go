// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over REST: upload inputs, trigger a
// run, read status and reports, browse archives. One run at a time; a
// second process request while a run is in flight gets 409.
// Implements: prd006-service (R1-R5);
//
//	docs/ARCHITECTURE § Service.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pdiddy/medscan/internal/archive"
	"github.com/pdiddy/medscan/internal/pipeline"
	"github.com/pdiddy/medscan/internal/report"
	"github.com/pdiddy/medscan/internal/runstore"
	"github.com/pdiddy/medscan/pkg/types"
)

// Version is the API version reported by the root endpoint.
const Version = "1.0.0"

// uploadLimit bounds a single multipart upload request.
const uploadLimit = 256 << 20

// Server holds the REST handlers and the single-flight run guard.
type Server struct {
	cfg   types.PipelineConfig
	ctrl  *pipeline.Controller
	store *runstore.Store
	w     io.Writer

	mu         sync.Mutex
	processing bool
	last       *pipeline.Result
}

// New wires a server. The store may be nil; run history is then omitted
// from status responses. Progress output defaults to io.Discard.
func New(cfg types.PipelineConfig, ctrl *pipeline.Controller, store *runstore.Store, w io.Writer) *Server {
	if w == nil {
		w = io.Discard
	}
	return &Server{cfg: cfg, ctrl: ctrl, store: store, w: w}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /results/{filename}", s.handleResult)
	mux.HandleFunc("GET /reports/analysis", s.handleReportDownload)
	mux.HandleFunc("GET /reports/analysis/content", s.handleReportContent)
	mux.HandleFunc("GET /reports/results.json", s.handleResultsDownload)
	mux.HandleFunc("DELETE /reset", s.handleReset)
	mux.HandleFunc("GET /archives/skill", s.handleArchiveList)
	mux.HandleFunc("GET /archives/skill/{name}", s.handleArchiveGet)
	return mux
}

// ListenAndServe blocks serving HTTP on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8000"
	}
	fmt.Fprintf(s.w, "listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends a {"detail": ...} JSON error body.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "medscan API",
		"version": Version,
		"health":  "/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"provider": string(s.cfg.Inference.Provider),
		"model":    s.cfg.Inference.Model,
	})
}

type uploadedFile struct {
	Filename string `json:"filename"`
	Size     int    `json:"size,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadLimit); err != nil {
		writeError(w, http.StatusBadRequest, "parsing upload: %v", err)
		return
	}

	if err := os.MkdirAll(s.cfg.Discovery.InputDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "creating input directory: %v", err)
		return
	}

	var uploaded []uploadedFile
	for _, header := range r.MultipartForm.File["files"] {
		name := filepath.Base(header.Filename)
		if err := s.saveUpload(header, name); err != nil {
			fmt.Fprintf(s.w, "error uploading %s: %v\n", name, err)
			uploaded = append(uploaded, uploadedFile{Filename: name, Status: "error", Error: err.Error()})
			continue
		}
		fmt.Fprintf(s.w, "uploaded %s\n", name)
		uploaded = append(uploaded, uploadedFile{Filename: name, Size: int(header.Size), Status: "uploaded"})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_uploaded": len(uploaded),
		"files":          uploaded,
	})
}

func (s *Server) saveUpload(header *multipart.FileHeader, name string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.cfg.Discovery.InputDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

type analysisResult struct {
	Filename string `json:"filename"`
	Result   string `json:"result"`
	Status   string `json:"status"`
}

// resultList renders results in discovery order, not map order.
func resultList(res *pipeline.Result) []analysisResult {
	if res == nil || res.State == nil {
		return []analysisResult{}
	}
	out := make([]analysisResult, 0, len(res.State.Results))
	for _, item := range res.State.Items {
		text, ok := res.State.Results[item.Name]
		if !ok {
			continue
		}
		out = append(out, analysisResult{Filename: item.Name, Result: text, Status: "success"})
	}
	return out
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Processing already in progress")
		return
	}
	s.processing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	fmt.Fprintf(s.w, "starting file processing\n")

	res, err := s.ctrl.Run(r.Context())

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "completed",
		"total_files":     res.Summary.TotalFiles,
		"processed_files": res.Summary.ProcessedFiles,
		"results":         resultList(res),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	processing := s.processing
	last := s.last
	s.mu.Unlock()

	status := "idle"
	if processing {
		status = "processing"
	}

	body := map[string]any{
		"status":          status,
		"phase":           s.ctrl.Phase(),
		"total_files":     0,
		"processed_files": 0,
		"results":         resultList(last),
	}
	if last != nil && last.Summary != nil {
		body["total_files"] = last.Summary.TotalFiles
		body["processed_files"] = last.Summary.ProcessedFiles
	}

	if data, err := os.ReadFile(filepath.Join(s.cfg.Discovery.OutputDir, report.ReportFile)); err == nil {
		body["summary_report"] = string(data)
	}

	if s.store != nil {
		if runs, err := s.store.Runs(r.Context(), 5); err == nil {
			body["runs"] = runs
		}
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last != nil && last.State != nil {
		if text, ok := last.State.Results[filename]; ok {
			writeJSON(w, http.StatusOK, analysisResult{Filename: filename, Result: text, Status: "success"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Result not found for %s", filename)
}

func (s *Server) serveOutputFile(w http.ResponseWriter, r *http.Request, name, contentType string) {
	path := filepath.Join(s.cfg.Discovery.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "%s not available yet", name)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	s.serveOutputFile(w, r, report.ReportFile, "text/plain")
}

func (s *Server) handleReportContent(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(filepath.Join(s.cfg.Discovery.OutputDir, report.ReportFile))
	if err != nil {
		writeError(w, http.StatusNotFound, "Report not available yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"filename": report.ReportFile,
		"content":  string(data),
		"length":   len(data),
	})
}

func (s *Server) handleResultsDownload(w http.ResponseWriter, r *http.Request) {
	s.serveOutputFile(w, r, report.SummaryFile, "application/json")
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(s.w, "resetting system state\n")

	entries, err := os.ReadDir(s.cfg.Discovery.InputDir)
	if err != nil && !os.IsNotExist(err) {
		writeError(w, http.StatusInternalServerError, "reading input directory: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.Discovery.InputDir, e.Name())); err != nil {
			writeError(w, http.StatusInternalServerError, "removing %s: %v", e.Name(), err)
			return
		}
	}

	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleArchiveList(w http.ResponseWriter, _ *http.Request) {
	metas, err := archive.List(s.cfg.Discovery.OutputDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	list := make([]*types.ArchiveMetadata, 0, len(metas))
	for _, m := range metas {
		list = append(list, m)
	}
	// Most recent archive first; folder names are timestamp-prefixed.
	sort.Slice(list, func(i, j int) bool { return list[i].ArchiveFolder > list[j].ArchiveFolder })

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"total_archives": len(list),
		"archives":       list,
	})
}

func (s *Server) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	meta, err := archive.Load(s.cfg.Discovery.OutputDir, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Archive %q not found or invalid", name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"archive": meta,
	})
}
