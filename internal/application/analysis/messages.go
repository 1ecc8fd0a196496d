package analysis

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English text.
const (
	msgValidationFailed = "Validation failed"
	msgRequired         = "%s is required"
	msgNotString        = "%s must be a string"
	msgTooShort         = "%s must be at least %d characters"
	msgTooLong          = "%s must be at most %d characters"
	msgCharset          = "%s contains disallowed characters"
)

var supportedLanguages = []language.Tag{language.English, language.Russian}

var langMatcher = language.NewMatcher(supportedLanguages)

func init() {
	ru := map[string]string{
		msgValidationFailed: "Ошибка валидации",
		msgRequired:         "Поле %s обязательно",
		msgNotString:        "Поле %s должно быть строкой",
		msgTooShort:         "Поле %s должно содержать не менее %d символов",
		msgTooLong:          "Поле %s должно содержать не более %d символов",
		msgCharset:          "Поле %s содержит недопустимые символы",
	}
	for key, text := range ru {
		_ = message.SetString(language.Russian, key, text)
	}
	for _, key := range []string{msgValidationFailed, msgRequired, msgNotString, msgTooShort, msgTooLong, msgCharset} {
		_ = message.SetString(language.English, key, key)
	}
}

// MatchLanguage picks the best supported language for an Accept-Language
// header value. English is the default.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supportedLanguages[idx]
}

func printer(lang language.Tag) *message.Printer {
	if lang == language.Und {
		lang = language.English
	}
	return message.NewPrinter(lang)
}
