//go:build !integration

package router

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
)

func TestBridge_Prepare(t *testing.T) {
	t.Run("should decline when no login url was captured", func(t *testing.T) {
		b := NewBridge("", "", false)

		login, err := b.Prepare(model.PortalParams{MAC: "AA:BB"}, "u", "p")

		if !errors.Is(err, domain.ErrNoLoginURL) {
			t.Fatalf("expected ErrNoLoginURL, got %v", err)
		}
		if login != nil {
			t.Error("no form may be produced")
		}
	})

	t.Run("should use captured action and destination", func(t *testing.T) {
		q := url.Values{}
		q.Set("mac", "AA:BB")
		q.Set("link-login", url.QueryEscape("http://10.5.50.1/login?x=1"))
		q.Set("link-orig", "http://example.com/")
		params := model.ParsePortalParams(q)

		login, err := NewBridge("", "", false).Prepare(params, "ABCD1234", "ABCD1234")

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if login.Action != "http://10.5.50.1/login?x=1" {
			t.Errorf("unexpected action %q", login.Action)
		}
		if login.Dst != "http://example.com/" {
			t.Errorf("unexpected dst %q", login.Dst)
		}
	})

	t.Run("should default dst and optionally the action", func(t *testing.T) {
		login, err := NewBridge("", "", true).Prepare(model.PortalParams{}, "u", "p")

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if login.Action != model.DefaultLoginURL || login.Dst != model.DefaultDst {
			t.Errorf("unexpected defaults %+v", login)
		}
	})

	t.Run("should refuse non-http actions", func(t *testing.T) {
		_, err := NewBridge("", "", false).Prepare(model.PortalParams{LinkLogin: "javascript:alert(1)"}, "u", "p")
		if !errors.Is(err, domain.ErrNoLoginURL) {
			t.Fatalf("expected ErrNoLoginURL, got %v", err)
		}
	})
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	login := &model.RouterLogin{Action: "http://10.5.50.1/login", Username: "user<1>", Password: "ABCD1234", Dst: "http://google.com"}

	if err := Render(&buf, "Logging you in...", login); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`method="POST"`,
		`action="http://10.5.50.1/login"`,
		`name="password" value="ABCD1234"`,
		`name="dst" value="http://google.com"`,
		`user&lt;1&gt;`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
