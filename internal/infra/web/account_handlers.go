package web

import (
	"errors"
	"net/http"
	"strings"

	"hotspot-portal/internal/domain"
)

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", &page{
		Title: s.tr.T("login.title"),
		Next:  safeNext(r.URL.Query().Get("next")),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	next := safeNext(r.FormValue("next"))

	err := s.deps.Sessions.Login(r.Context(), sess, r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrRejected):
			status = http.StatusUnauthorized
		}
		msg := domain.ServerMessage(err)
		if msg == "" {
			msg = s.tr.T("login.failed")
		}
		s.render(w, r, status, "login", &page{
			Title:   s.tr.T("login.title"),
			Flash:   msg,
			IsError: true,
			Next:    next,
		})
		return
	}
	if next == "" {
		next = s.opts.DashboardPath
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Teardown(r.Context(), sessionFrom(r.Context())); err != nil {
		s.log.Warn().Err(err).Msg("logout teardown failed")
	}
	http.Redirect(w, r, s.opts.LoginPath, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.render(w, r, http.StatusOK, "dashboard", &page{
		Title:    s.tr.T("dashboard.title"),
		Username: sess.Username,
		Plans:    s.deps.Portal.Plans(r.Context()),
	})
}

// safeNext keeps post-login redirects on this host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
