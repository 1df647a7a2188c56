package httputil

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/profilekit/foldconv/internal/folded"
	"github.com/profilekit/foldconv/internal/grafana"
)

// GetFormat reads the optional "format" query parameter. An absent or
// blank parameter means CSV; anything unrecognized is a 400.
func GetFormat(w http.ResponseWriter, r *http.Request) (grafana.Format, bool) {
	format, err := grafana.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return format, true
}

// GetSeparator reads the optional "separator" query parameter, which
// must be a single character when present.
func GetSeparator(w http.ResponseWriter, r *http.Request) (rune, bool) {
	value := r.URL.Query().Get("separator")
	if value == "" {
		return folded.DefaultSeparator, true
	}
	sep, size := utf8.DecodeRuneInString(value)
	if sep == utf8.RuneError || size != len(value) {
		http.Error(w, fmt.Sprintf("separator must be a single character, got %q", value), http.StatusBadRequest)
		return 0, false
	}
	return sep, true
}
