// Package respond renders RFC 9457 problem documents for requests that never
// reach a huma operation: unknown routes, wrong methods and recovered panics.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	applog "github.com/janisto/hello-world-api/internal/platform/logging"
	"github.com/janisto/hello-world-api/internal/platform/middleware"
)

const (
	msgNotFound          = "resource not found"
	msgInternalServerErr = "internal server error"

	// schemaPath matches the path huma serves the ErrorModel schema from.
	schemaPath = "/schemas/ErrorModel.json"

	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"
)

// Problem mirrors huma.ErrorModel with the $schema link huma adds to its own
// error responses, so 404/405/500 documents look like every other error.
type Problem struct {
	Schema string `json:"$schema,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// WriteProblem writes a problem document for status, as CBOR when the request
// prefers it and JSON otherwise.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) error {
	schema := schemaURL(r)
	p := Problem{
		Schema: schema,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	h := w.Header()
	middleware.AddVary(h, "Accept")
	h.Set("Link", "<"+schema+`>; rel="describedBy"`)

	if prefersCBOR(r.Header.Get("Accept")) {
		body, err := cbor.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode problem: %w", err)
		}
		h.Set("Content-Type", contentTypeProblemCBOR)
		w.WriteHeader(status)
		_, err = w.Write(body)
		return err
	}

	h.Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(p)
}

// NotFoundHandler answers unknown routes with a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := WriteProblem(w, r, http.StatusNotFound, msgNotFound); err != nil {
			applog.LogError(r.Context(), "failed to render not found", err)
		}
	}
}

// MethodNotAllowedHandler answers a known path with an unsupported method.
// The Allow header lists every method the router would accept for the path.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		detail := fmt.Sprintf("method %s not allowed", r.Method)
		if err := WriteProblem(w, r, http.StatusMethodNotAllowed, detail); err != nil {
			applog.LogError(r.Context(), "failed to render method not allowed", err)
		}
	}
}

// Recoverer converts panics into 500 problems and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection,
// and nothing is written when the handler already sent headers.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity, as net/http does
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				applog.LogError(r.Context(), "panic recovered", err, zap.String("stack", string(debug.Stack())))

				if ww.Status() != 0 {
					return
				}
				if writeErr := WriteProblem(ww, r, http.StatusInternalServerError, msgInternalServerErr); writeErr != nil {
					applog.LogError(r.Context(), "failed to render internal error", writeErr)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// allowedMethods asks chi which methods would match the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	var allowed []string
	for _, method := range []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	} {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func schemaURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + schemaPath
}

var errBadQuality = errors.New("invalid quality value")

// mediaRange is one element of an Accept header.
type mediaRange struct {
	mediaType string
	q         float64
}

func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(part)
		if err != nil || !strings.Contains(mt, "/") {
			continue
		}
		q, err := parseQuality(params["q"])
		if err != nil {
			continue
		}
		ranges = append(ranges, mediaRange{mediaType: mt, q: q})
	}
	return ranges
}

func parseQuality(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q < 0 || q > 1 {
		return 0, errBadQuality
	}
	return q, nil
}

// prefersCBOR reports whether the client ranks a CBOR type strictly above JSON.
// Wildcards count for both formats, so ties and "*/*" fall back to JSON.
func prefersCBOR(accept string) bool {
	if accept == "" {
		return false
	}
	cborQ, jsonQ := -1.0, -1.0
	wildQ := -1.0
	for _, mr := range parseAccept(accept) {
		switch mr.mediaType {
		case "application/cbor", contentTypeProblemCBOR:
			cborQ = max(cborQ, mr.q)
		case "application/json", contentTypeProblemJSON:
			jsonQ = max(jsonQ, mr.q)
		case "*/*", "application/*":
			wildQ = max(wildQ, mr.q)
		}
	}
	if jsonQ < 0 {
		jsonQ = wildQ
	}
	return cborQ > 0 && cborQ > jsonQ
}
