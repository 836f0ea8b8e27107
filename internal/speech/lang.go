package speech

// localeByLanguage maps the platform's supported language hints to speech
// engine locale codes
var localeByLanguage = map[string]string{
	"en": "en-US",
	"tw": "tw-GH",
	"ga": "ga-GH",
}

// DefaultLocale is used for unsupported language hints
const DefaultLocale = "en-US"

// Locale resolves a language hint to an engine locale, falling back to the
// default for anything unsupported.
func Locale(language string) string {
	if locale, ok := localeByLanguage[language]; ok {
		return locale
	}
	return DefaultLocale
}
