//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: Habari\nwelcome_user: Karibu %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Habari" {
			t.Errorf("wanted 'Habari', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Amina"); got != "Karibu Amina" {
			t.Errorf("wanted 'Karibu Amina', got '%s'", got)
		}
	})
}

func TestNewTranslator_Fallback(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("a: Apple\nb: Banana")},
		"locales/sw.yaml": {Data: []byte("a: Tufaha")},
	}

	tr, err := NewTranslator(fsys, "sw")
	if err != nil {
		t.Fatal(err)
	}
	if tr.T("a") != "Tufaha" || tr.T("b") != "Banana" || tr.Lang() != "sw" {
		t.Errorf("unexpected translations: %q %q", tr.T("a"), tr.T("b"))
	}
	if _, err := NewTranslator(fsys, "fr"); err == nil {
		t.Error("expected error for a missing locale")
	}
}

func TestEmbeddedLocales(t *testing.T) {
	en, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("load en: %v", err)
	}
	sw, err := NewTranslator(LocalesFS, "sw")
	if err != nil {
		t.Fatalf("load sw: %v", err)
	}
	for key := range en.translations {
		if _, ok := sw.translations[key]; !ok {
			t.Errorf("sw locale is missing %q", key)
		}
	}
	if got := en.T("portal.no_device"); got != "No device detected. Please connect to WiFi properly." {
		t.Errorf("unexpected no_device text %q", got)
	}
}
