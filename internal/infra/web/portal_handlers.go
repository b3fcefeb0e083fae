package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/adapters/router"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/usecase"
)

// handlePortal is where the gateway redirects unauthenticated devices. The
// query of each load replaces what was captured before; the POST routes
// reuse the stored values.
func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	params := model.ParsePortalParams(r.URL.Query())
	if params != sess.Portal {
		sess.ResetPortal(params)
		s.saveSession(r, sess)
	}
	s.check(w, r, sess, "", false)
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	view, err := s.deps.Portal.Recheck(r.Context(), sess)
	if err != nil {
		s.portalError(w, r, err)
		return
	}
	s.renderPortal(w, r, http.StatusOK, view, "", false)
}

func (s *Server) check(w http.ResponseWriter, r *http.Request, sess *model.Session, flash string, isErr bool) {
	view, err := s.deps.Portal.Check(r.Context(), sess)
	if err != nil {
		s.portalError(w, r, err)
		return
	}
	s.renderPortal(w, r, http.StatusOK, view, flash, isErr)
}

// renderPortal hands off to the router when the view carries a login,
// otherwise renders the purchase/redeem page.
func (s *Server) renderPortal(w http.ResponseWriter, r *http.Request, status int, view *model.PortalView, flash string, isErr bool) {
	if view.Login != nil {
		s.routerLogin(w, r, view.Login)
		return
	}
	if flash == "" {
		flash = s.portalMessage(view)
		isErr = view.IsError
	}
	s.render(w, r, status, "portal", &page{
		Title:   s.tr.T("portal.title"),
		Flash:   flash,
		IsError: isErr,
		Portal:  view,
	})
}

func (s *Server) portalMessage(view *model.PortalView) string {
	if view.Message == "" || view.Verbatim {
		return view.Message
	}
	return s.tr.T(view.Message)
}

func (s *Server) routerLogin(w http.ResponseWriter, r *http.Request, login *model.RouterLogin) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := router.Render(w, s.tr.T("portal.active"), login); err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("router login page failed")
	}
}

func (s *Server) portalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.With(r.Context(), s.log).Error().Err(err).Msg("portal request failed")
	sess := sessionFrom(r.Context())
	view := &model.PortalView{Stage: model.PortalInactive, Params: sess.Portal, Plans: s.deps.Portal.Plans(r.Context())}
	s.renderPortal(w, r, http.StatusInternalServerError, view, s.tr.T("error.internal"), true)
}

// inactiveView is the purchase/redeem page used to show form errors.
func (s *Server) inactiveView(r *http.Request) *model.PortalView {
	sess := sessionFrom(r.Context())
	return &model.PortalView{Stage: model.PortalInactive, Params: sess.Portal, Plans: s.deps.Portal.Plans(r.Context())}
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	out, err := s.deps.Vouchers.Redeem(r.Context(), sess, r.FormValue("code"))
	if err != nil {
		status, msg := http.StatusBadGateway, s.errorMessage(err, "redeem.failed")
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			status, msg = http.StatusBadRequest, s.tr.T("redeem.empty")
		case errors.Is(err, domain.ErrRateLimited):
			status, msg = http.StatusTooManyRequests, s.tr.T("redeem.rate_limited")
		case errors.Is(err, domain.ErrRejected):
			status = http.StatusUnprocessableEntity
		}
		s.renderPortal(w, r, status, s.inactiveView(r), msg, true)
		return
	}

	flash := out.Result.Message
	if flash == "" {
		flash = s.tr.T("redeem.success")
	}
	switch {
	case out.Login != nil:
		s.routerLogin(w, r, out.Login)
	case out.Declined:
		view := &model.PortalView{Stage: model.PortalActive, Message: usecase.MsgDevAuthorized, Params: sess.Portal}
		s.renderPortal(w, r, http.StatusOK, view, s.tr.T(usecase.MsgDevAuthorized), false)
	case out.Check != nil:
		s.renderPortal(w, r, http.StatusOK, out.Check, flash, false)
	default:
		s.renderPortal(w, r, http.StatusOK, s.inactiveView(r), flash, false)
	}
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	planID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("plan_id")), 10, 64)
	view, err := s.deps.Portal.Buy(r.Context(), sess, planID, r.FormValue("phone"))
	if err != nil {
		status, msg := s.paymentError(err, planID)
		s.renderPortal(w, r, status, s.inactiveView(r), msg, true)
		return
	}
	s.renderPortal(w, r, http.StatusOK, view, "", false)
}

// paymentError maps an initiation failure to a status and user message.
func (s *Server) paymentError(err error, planID int64) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument) && planID <= 0:
		return http.StatusBadRequest, s.tr.T("payment.select_plan")
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, s.tr.T("payment.phone_required")
	case errors.Is(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity, s.errorMessage(err, "payment.initiate_failed")
	default:
		return http.StatusBadGateway, s.tr.T("payment.initiate_failed")
	}
}
