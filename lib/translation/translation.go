package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Configure loads <localesDir>/<lang>/default.po. Missing catalogs leave messages untranslated.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, strings.ToLower(lang), "default")
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Translate looks up msgID and formats it with vars.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
