package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/export"
	"hotspot-portal/internal/infra/logging"
)

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	s.renderBatches(w, r, http.StatusOK, "", false)
}

func (s *Server) renderBatches(w http.ResponseWriter, r *http.Request, status int, flash string, isErr bool) {
	sess := sessionFrom(r.Context())
	batches, err := s.deps.Batches.ListBatches(r.Context(), sess)
	if err != nil {
		if s.teardownIfUnauthorized(w, r, err) {
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list batches failed")
		batches = nil
		if flash == "" {
			flash, isErr = s.errorMessage(err, "error.internal"), true
			status = http.StatusBadGateway
		}
	}
	s.render(w, r, status, "batches", &page{
		Title:   s.tr.T("admin.title"),
		Flash:   flash,
		IsError: isErr,
		Batches: batches,
		Plans:   s.deps.Portal.Plans(r.Context()),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	req, ok := parseGenerateForm(r)
	if !ok {
		s.renderBatches(w, r, http.StatusBadRequest, s.tr.T("admin.generate_invalid"), true)
		return
	}
	b, err := s.deps.Batches.Generate(r.Context(), sess, req)
	if err != nil {
		if s.teardownIfUnauthorized(w, r, err) {
			return
		}
		status := http.StatusBadGateway
		msg := s.errorMessage(err, "error.internal")
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			status, msg = http.StatusBadRequest, s.tr.T("admin.generate_invalid")
		case errors.Is(err, domain.ErrRejected):
			status = http.StatusUnprocessableEntity
		}
		s.renderBatches(w, r, status, msg, true)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/admin/batches/%d", b.ID), http.StatusSeeOther)
}

// parseGenerateForm reads quantity, plan_id, value and note. A value that
// does not parse is a form error rather than "no value".
func parseGenerateForm(r *http.Request) (model.GenerateRequest, bool) {
	var req model.GenerateRequest
	q, err := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity")))
	if err != nil {
		return req, false
	}
	req.Quantity = q
	req.Note = strings.TrimSpace(r.FormValue("note"))
	if v := strings.TrimSpace(r.FormValue("plan_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, false
		}
		req.PlanID = &id
		return req, true
	}
	if v := strings.TrimSpace(r.FormValue("value")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return req, false
		}
		req.Value = &d
	}
	return req, true
}

func (s *Server) loadBatch(w http.ResponseWriter, r *http.Request) (*model.VoucherBatch, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	b, err := s.deps.Batches.Batch(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		if s.teardownIfUnauthorized(w, r, err) {
			return nil, false
		}
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		logging.With(r.Context(), s.log).Error().Err(err).Int64("batch_id", id).Msg("load batch failed")
		s.renderBatches(w, r, http.StatusBadGateway, s.errorMessage(err, "error.internal"), true)
		return nil, false
	}
	return b, true
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := s.loadBatch(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "batch", &page{
		Title:  s.tr.T("admin.batch_title", b.ID),
		Batch:  b,
		Counts: b.CountByStatus(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(chi.URLParam(r, "format"))
	if format != export.FormatCSV && format != export.FormatXLSX {
		http.NotFound(w, r)
		return
	}
	b, ok := s.loadBatch(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, b, format); err != nil {
		if errors.Is(err, export.ErrEmptyBatch) {
			http.Error(w, s.tr.T("admin.export_empty"), http.StatusUnprocessableEntity)
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Int64("batch_id", b.ID).Msg("batch export failed")
		http.Error(w, s.tr.T("error.internal"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(b.ID, format)))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	events, err := s.deps.Activity.Recent(r.Context(), limit)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("activity query failed")
		writeJSONError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
