package middleware

import (
	"net/http"
	"strings"
)

// Vary adds Accept to the Vary header (RFC 9110 section 12.5.5): structured responses
// are negotiated between JSON and CBOR. CORS adds Origin on its own.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			AddVary(w.Header(), "Accept")
			next.ServeHTTP(w, r)
		})
	}
}

// AddVary appends values to the Vary header, skipping ones already listed.
func AddVary(h http.Header, values ...string) {
	present := map[string]struct{}{}
	for _, line := range h.Values("Vary") {
		for part := range strings.SplitSeq(line, ",") {
			if v := strings.TrimSpace(part); v != "" {
				present[strings.ToLower(v)] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		h.Add("Vary", v)
	}
}
