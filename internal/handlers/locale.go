package handlers

import (
	"net/http"

	"golang.org/x/text/language"
)

// RequestLocale picks the display locale: the "locale" query parameter, then
// the first Accept-Language entry. Empty means the default locale.
func RequestLocale(r *http.Request) string {
	if locale := r.URL.Query().Get("locale"); locale != "" {
		return locale
	}

	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}
