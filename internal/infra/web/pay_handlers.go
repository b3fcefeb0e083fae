package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/logging"
)

func (s *Server) handlePayForm(w http.ResponseWriter, r *http.Request) {
	planID, _ := strconv.ParseInt(r.URL.Query().Get("plan_id"), 10, 64)
	s.render(w, r, http.StatusOK, "pay", &page{
		Title:  s.tr.T("payment.title"),
		Plans:  s.deps.Portal.Plans(r.Context()),
		PlanID: planID,
	})
}

// handlePay initiates an STK push and starts watching it. A retry always
// initiates a new request.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	planID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("plan_id")), 10, 64)
	phone := r.FormValue("phone")

	id, err := s.deps.Payments.Initiate(r.Context(), sess, planID, phone, sess.Portal.MAC)
	if err != nil {
		if s.teardownIfUnauthorized(w, r, err) {
			return
		}
		status, msg := s.paymentError(err, planID)
		if wantsJSON(r) {
			writeJSONError(w, status, msg)
			return
		}
		s.render(w, r, status, "pay", &page{
			Title:   s.tr.T("payment.title"),
			Flash:   msg,
			IsError: true,
			Plans:   s.deps.Portal.Plans(r.Context()),
			PlanID:  planID,
			Phone:   phone,
		})
		return
	}

	watch, err := s.deps.Watcher.Start(r.Context(), sess, id, planID)
	if err != nil {
		// The STK push is already on the phone; the page just cannot follow it.
		logging.With(r.Context(), s.log).Error().Err(err).Int64("payment_request_id", id).Msg("payment watch not started")
		s.render(w, r, http.StatusServiceUnavailable, "pay", &page{
			Title:  s.tr.T("payment.title"),
			Flash:  s.tr.T("payment.stk_sent"),
			Plans:  s.deps.Portal.Plans(r.Context()),
			PlanID: planID,
			Phone:  phone,
		})
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, watchJSON(watch))
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/pay/%d", id), http.StatusSeeOther)
}

type watchResponse struct {
	RequestID int64                  `json:"payment_request_id"`
	State     model.PaymentViewState `json:"state"`
	Status    model.PaymentStatus    `json:"status,omitempty"`
	Outcome   model.PaymentOutcome   `json:"outcome,omitempty"`
	Attempts  int                    `json:"attempts"`
}

func watchJSON(w *model.PaymentWatch) watchResponse {
	return watchResponse{
		RequestID: w.RequestID,
		State:     w.State,
		Status:    w.LastStatus,
		Outcome:   w.Outcome,
		Attempts:  w.Attempts,
	}
}

func (s *Server) handlePaymentState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	watch, err := s.deps.Watcher.Get(r.Context(), sess, id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotWatched) {
			status = http.StatusNotFound
		}
		if wantsJSON(r) {
			writeJSONError(w, status, s.tr.T("payment.unknown"))
			return
		}
		s.render(w, r, status, "payment", &page{Title: s.tr.T("payment.title"), Flash: s.tr.T("payment.unknown"), IsError: true})
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, watchJSON(watch))
		return
	}

	p := &page{Title: s.tr.T("payment.title"), Watch: watch}
	switch watch.State {
	case model.PaymentViewSuccess:
		p.Flash = s.tr.T("payment.success")
		p.Refresh = int(s.opts.SuccessDelay.Seconds())
		p.RefreshURL = s.opts.DashboardPath
	case model.PaymentViewFailed:
		p.Flash = s.tr.T(outcomeKey(watch.Outcome))
		p.IsError = true
	default:
		p.Flash = s.tr.T("payment.pending")
		p.Refresh = int(s.opts.PollInterval.Seconds())
		if p.Refresh < 1 {
			p.Refresh = 1
		}
	}
	s.render(w, r, http.StatusOK, "payment", p)
}

func outcomeKey(o model.PaymentOutcome) string {
	switch o {
	case model.OutcomeTimeout:
		return "payment.timeout"
	case model.OutcomeAbandoned:
		return "payment.abandoned"
	default:
		return "payment.failed"
	}
}

// handlePaymentReset discards the tracked request and returns to the form.
func (s *Server) handlePaymentReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err == nil {
		if err := s.deps.Watcher.Stop(r.Context(), sess, id); err != nil && !errors.Is(err, domain.ErrNotWatched) {
			logging.With(r.Context(), s.log).Warn().Err(err).Int64("payment_request_id", id).Msg("payment reset failed")
		}
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, watchResponse{RequestID: id, State: model.PaymentViewIdle})
		return
	}
	http.Redirect(w, r, "/pay", http.StatusSeeOther)
}
