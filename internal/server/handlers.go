package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/javajack/xltransform"
	"github.com/javajack/xltransform/internal/logging"
	"github.com/javajack/xltransform/internal/store"
)

// TemplateSummary is one entry of GET /templates.
type TemplateSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Columns     int    `json:"columns"`
}

// RunRequest is the body of POST /runs. Input and Output are relative to the
// server's data directory.
type RunRequest struct {
	TemplateID int64  `json:"template_id"`
	Input      string `json:"input"`
	Output     string `json:"output"`
}

// RunNotification is a notification in a RunResponse.
type RunNotification struct {
	Severity   string `json:"severity"`
	Type       string `json:"type"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Row        int    `json:"row,omitempty"`
	Column     int    `json:"column,omitempty"`
	ColumnName string `json:"column_name,omitempty"`
	Cell       string `json:"cell,omitempty"`
}

// RunResponse is the body returned by POST /runs.
type RunResponse struct {
	OK            bool              `json:"ok"`
	Output        string            `json:"output,omitempty"`
	Error         string            `json:"error,omitempty"`
	Warnings      int               `json:"warnings"`
	Errors        int               `json:"errors"`
	Notifications []RunNotification `json:"notifications"`
}

// ImportResponse is the body returned by POST /templates/import.
type ImportResponse struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	out := make([]TemplateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, TemplateSummary{
			ID:          int64(t.ID),
			Name:        t.Name,
			Description: t.Description,
			Columns:     len(t.Columns),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	ic := xltransform.Export([]*xltransform.Template{t}, time.Now())
	writeJSON(w, http.StatusOK, ic.Templates[0])
}

func (s *Server) handleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	issues := xltransform.ValidateTemplate(t)
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  !xltransform.HasErrors(issues),
		"issues": out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	data, err := xltransform.Export(list, time.Now()).Marshal(format)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/yaml")
	}
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read body: %w", err), http.StatusBadRequest)
		return
	}
	ic, err := xltransform.ParseInterchange(body)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	cat, err := xltransform.Import(ic)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	ids, err := store.ImportCatalog(r.Context(), s.store, cat)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := ImportResponse{IDs: make([]int64, 0, len(ids))}
	for _, id := range ids {
		resp.IDs = append(resp.IDs, int64(id))
	}
	logging.FromContext(r.Context()).Info("templates imported", "count", len(ids))
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode run request: %w", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" || req.Output == "" {
		s.respondError(w, r, errors.New("input and output are required"), http.StatusBadRequest)
		return
	}
	in, err := s.resolvePath(req.Input)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	outPath, err := s.resolvePath(req.Output)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	var notes xltransform.Collector
	opts := append([]xltransform.Option{}, s.runOpts...)
	opts = append(opts,
		xltransform.WithObserver(notes.Observe),
		xltransform.WithLogger(logging.FromContext(r.Context())),
	)
	outcome := xltransform.NewEngine(opts...).
		RunStored(ctx, in, outPath, s.store, xltransform.TemplateID(req.TemplateID))

	resp := RunResponse{
		Warnings:      notes.Count(xltransform.SeverityWarning),
		Notifications: make([]RunNotification, 0, len(notes.Notes)),
	}
	for _, n := range notes.Notes {
		if n.Type == xltransform.NoteCell && n.Severity == xltransform.SeverityError {
			resp.Errors++
		}
		resp.Notifications = append(resp.Notifications, RunNotification{
			Severity:   n.Severity.String(),
			Type:       string(n.Type),
			Code:       string(n.Code),
			Message:    n.Message,
			Row:        n.Row,
			Column:     n.Column,
			ColumnName: n.ColumnName,
			Cell:       n.Cell,
		})
	}

	status := http.StatusOK
	if _, err := outcome.Unwrap(); err != nil {
		resp.Error = err.Error()
		status = http.StatusUnprocessableEntity
	} else {
		resp.OK = true
		resp.Output = req.Output
	}
	writeJSON(w, status, resp)
}

func (s *Server) loadTemplate(w http.ResponseWriter, r *http.Request) (*xltransform.Template, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("invalid template id %q", chi.URLParam(r, "id")), http.StatusBadRequest)
		return nil, false
	}
	t, err := s.store.Load(r.Context(), xltransform.TemplateID(id))
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return nil, false
	}
	return t, true
}
