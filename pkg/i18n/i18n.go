package i18n

import (
	"encoding/json"
	"log"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Languages shipped in the locales directory.
var SupportedLanguages = []string{"en", "hi", "es", "fr"}

// I18nSupport localizes alert messages for tourist clients.
type I18nSupport struct {
	bundle *i18n.Bundle
}

// NewI18nSupport loads the locale files from dir. A missing file for a
// secondary language is logged, not fatal.
func NewI18nSupport(defaultLang, dir string) (*I18nSupport, error) {
	bundle := i18n.NewBundle(language.MustParse(defaultLang))
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range SupportedLanguages {
		path := filepath.Join(dir, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			log.Printf("failed to load %s: %v", path, err)
		}
	}

	return &I18nSupport{bundle: bundle}, nil
}

// T returns the translation for key in the given language, falling back
// to the default language and finally to the key itself.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		return key
	}
	return translation
}
