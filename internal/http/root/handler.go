// Package root serves the greeting at the root path.
package root

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	applog "github.com/janisto/hello-world-api/internal/platform/logging"
)

// Greeting is the exact response body for GET /. No trailing newline or punctuation.
const Greeting = "Hello World"

// ContentType is the media type of the greeting.
const ContentType = "text/plain; charset=utf-8"

// Output is the raw text response. A []byte body makes huma write the bytes
// as-is instead of running them through content negotiation.
type Output struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// Register wires the root route into api.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Say hello",
		Description: "Returns the plain-text greeting `" + Greeting + "`.",
		Tags:        []string{"Root"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Greeting",
				Content: map[string]*huma.MediaType{
					"text/plain": {
						Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Greeting}},
					},
				},
			},
		},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogInfo(ctx, "root greeting")
	return &Output{ContentType: ContentType, Body: []byte(Greeting)}, nil
}
