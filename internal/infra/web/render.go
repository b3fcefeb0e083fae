package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{"portal", "pay", "payment", "login", "dashboard", "batches", "batch"}

// page is the data every template receives.
type page struct {
	Lang       string
	Title      string
	Flash      string
	IsError    bool
	Refresh    int
	RefreshURL string

	Username string
	Next     string
	Portal   *model.PortalView
	Plans    []*model.Plan
	PlanID   int64
	Phone    string
	Watch    *model.PaymentWatch
	Batches  []*model.VoucherBatch
	Batch    *model.VoucherBatch
	Counts   map[model.VoucherStatus]int
}

func (s *Server) parseTemplates() error {
	funcs := template.FuncMap{"t": s.tr.T}
	s.pages = make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return err
		}
		s.pages[name] = t
	}
	return nil
}

// render buffers the page so a template error never leaves a half-written
// response behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	p.Lang = s.tr.Lang()
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Str("page", name).Msg("template render failed")
		http.Error(w, s.tr.T("error.internal"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
