// Package swagger serves the API description and the Swagger UI page.
package swagger

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/userapi/internal/docs"
)

// Error constants.
var (
	ErrServe = errors.New("swagger serve failed")
)

// Served paths.
const (
	UIPath       = "/swagger-ui"
	SpecJSONPath = "/api-docs/openapi.json"
	SpecYAMLPath = "/api-docs/openapi.yaml"
)

// Option configures the UI page.
type Option func(*uiConfig)

type uiConfig struct {
	title   string
	specURL string
}

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(c *uiConfig) {
		if title != "" {
			c.title = title
		}
	}
}

// Title returns the page title (used in the template).
func (c *uiConfig) Title() string { return c.title }

// SpecURL returns the description URL (used in the template).
func (c *uiConfig) SpecURL() string { return c.specURL }

// Register attaches the Swagger UI and the description routes to r.
// Routes:
//
//	GET /swagger-ui               -> Swagger UI HTML
//	GET /swagger-ui/              -> same page
//	GET /api-docs/openapi.json    -> description as JSON
//	GET /api-docs/openapi.yaml    -> description as YAML
func Register(_ context.Context, r chi.Router, desc *docs.Description, opts ...Option) {
	if r == nil {
		panic("router is nil")
	}
	if desc == nil {
		panic("api description is nil")
	}

	cfg := &uiConfig{title: "API Docs", specURL: SpecJSONPath}
	for _, opt := range opts {
		opt(cfg)
	}

	page, err := renderUI(cfg)
	if err != nil {
		panic(err)
	}

	ui := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
	r.Get(UIPath, ui)
	r.Get(UIPath+"/", ui)

	r.Get(SpecJSONPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(desc.JSON())
	})
	r.Get(SpecYAMLPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(desc.YAML())
	})
}

func renderUI(cfg *uiConfig) ([]byte, error) {
	tmpl, err := template.New("swagger-ui").Parse(indexHTML)
	if err != nil {
		return nil, errors.Join(ErrServe, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, errors.Join(ErrServe, err)
	}
	return buf.Bytes(), nil
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = function () {
      window.ui = SwaggerUIBundle({ url: "{{.SpecURL}}", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>`
