package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator resolves message keys for one language. Missing keys fall back
// to the fallback translator, then to the key itself.
type Translator struct {
	lang         string
	translations map[string]string
	fallback     *Translator
}

// NewTranslator loads locales/<langCode>.yaml from fsys. Languages other
// than English fall back to English for keys they lack.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	t, err := load(fsys, langCode)
	if err != nil {
		return nil, err
	}
	if langCode != "en" {
		if en, err := load(fsys, "en"); err == nil {
			t.fallback = en
		}
	}
	return t, nil
}

func load(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T translates key, formatting args into the message when given.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		if t.fallback != nil {
			return t.fallback.T(key, args...)
		}
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
