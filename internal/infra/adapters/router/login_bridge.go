package router

import (
	"html/template"
	"io"
	"net/url"
	"strings"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
)

var _ adapter.RouterLoginBridge = (*Bridge)(nil)

// Bridge prepares the credential hand-off to a MikroTik-style hotspot login
// page. The submission is one-way: the router answers the browser, not us.
type Bridge struct {
	defaultAction string
	defaultDst    string
	// useDefault lets Prepare fall back to defaultAction when the gateway
	// redirect carried no link-login.
	useDefault bool
}

func NewBridge(defaultAction, defaultDst string, useDefault bool) *Bridge {
	if defaultAction == "" {
		defaultAction = model.DefaultLoginURL
	}
	if defaultDst == "" {
		defaultDst = model.DefaultDst
	}
	return &Bridge{defaultAction: defaultAction, defaultDst: defaultDst, useDefault: useDefault}
}

func (b *Bridge) Prepare(params model.PortalParams, username, password string) (*model.RouterLogin, error) {
	action := params.LinkLogin
	if action == "" {
		if !b.useDefault {
			return nil, domain.ErrNoLoginURL
		}
		action = b.defaultAction
	}
	if u, err := url.Parse(action); err != nil || !(u.Scheme == "http" || u.Scheme == "https") {
		return nil, domain.ErrNoLoginURL
	}
	dst := strings.TrimSpace(params.LinkOrig)
	if dst == "" {
		dst = b.defaultDst
	}
	return &model.RouterLogin{
		Action:   action,
		Username: username,
		Password: password,
		Dst:      dst,
	}, nil
}

var autoSubmit = template.Must(template.New("router_login").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body onload="document.getElementById('router-login').submit()">
<p>{{.Title}}</p>
<form id="router-login" method="POST" action="{{.Login.Action}}">
<input type="hidden" name="username" value="{{.Login.Username}}">
<input type="hidden" name="password" value="{{.Login.Password}}">
<input type="hidden" name="dst" value="{{.Login.Dst}}">
<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

// Render writes a page that posts login to the router as soon as it loads.
func Render(w io.Writer, title string, login *model.RouterLogin) error {
	return autoSubmit.Execute(w, struct {
		Title string
		Login *model.RouterLogin
	}{title, login})
}
