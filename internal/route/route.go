// Package route declares the HTTP route table.
//
// Each Route pairs a method and a path template with its handler and with
// everything the API description needs (parameters, request body, declared
// responses). The router and the description generator both read the same
// Table.
package route

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/okian/userapi/internal/schema"
)

// Content types used by declarations.
const (
	ContentJSON      = "application/json"
	ContentText      = "text/plain"
	ContentMultipart = "multipart/form-data"
)

var placeholderRE = regexp.MustCompile(`\{([^{}/]+)\}`)

// Param is a path parameter.
type Param struct {
	Name        string
	Kind        schema.Kind
	Description string
}

// Body declares the request body.
type Body struct {
	ContentType string
	Shape       string
}

// Response declares one possible response. Shape is empty for text bodies
// and for responses without content.
type Response struct {
	Status      int
	Description string
	ContentType string
	Shape       string
}

// Route is one entry of the table.
type Route struct {
	Method      string
	Pattern     string
	OperationID string
	Summary     string
	Params      []Param
	Body        *Body
	Responses   []Response
	Handler     http.HandlerFunc
}

// Placeholders returns the names of the {placeholders} in the pattern.
func (r Route) Placeholders() []string {
	var out []string
	for _, m := range placeholderRE.FindAllStringSubmatch(r.Pattern, -1) {
		out = append(out, m[1])
	}
	return out
}

func (r Route) String() string {
	return r.Method + " " + r.Pattern
}

// Table is an ordered list of routes.
type Table []Route

// Validate checks the table against itself and reg.
func (t Table) Validate(reg *schema.Registry) error {
	seen := make(map[string]bool, len(t))
	ops := make(map[string]bool, len(t))
	for _, r := range t {
		if err := r.validate(reg); err != nil {
			return err
		}
		key := r.String()
		if seen[key] {
			return fmt.Errorf("%w: %s declared twice", ErrInvalidRoute, key)
		}
		seen[key] = true
		if ops[r.OperationID] {
			return fmt.Errorf("%w: operation id %q reused by %s", ErrInvalidRoute, r.OperationID, key)
		}
		ops[r.OperationID] = true
	}
	return nil
}

func (r Route) validate(reg *schema.Registry) error {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("%w: %s: unsupported method", ErrInvalidRoute, r)
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("%w: %s: pattern must start with /", ErrInvalidRoute, r)
	}
	if r.OperationID == "" {
		return fmt.Errorf("%w: %s: missing operation id", ErrInvalidRoute, r)
	}
	if r.Handler == nil {
		return fmt.Errorf("%w: %s: missing handler", ErrInvalidRoute, r)
	}

	declared := make(map[string]bool, len(r.Params))
	for _, p := range r.Params {
		if declared[p.Name] {
			return fmt.Errorf("%w: %s: parameter %q declared twice", ErrInvalidRoute, r, p.Name)
		}
		declared[p.Name] = true
	}
	holders := r.Placeholders()
	if len(holders) != len(declared) {
		return fmt.Errorf("%w: %s: path placeholders %v do not match parameters", ErrInvalidRoute, r, holders)
	}
	for _, h := range holders {
		if !declared[h] {
			return fmt.Errorf("%w: %s: placeholder {%s} has no parameter", ErrInvalidRoute, r, h)
		}
	}

	if r.Body != nil {
		if r.Body.ContentType == "" {
			return fmt.Errorf("%w: %s: body without content type", ErrInvalidRoute, r)
		}
		if _, err := reg.Shape(r.Body.Shape); err != nil {
			return fmt.Errorf("%w: %s: body: %w", ErrInvalidRoute, r, err)
		}
	}

	if len(r.Responses) == 0 {
		return fmt.Errorf("%w: %s: no responses declared", ErrInvalidRoute, r)
	}
	statuses := make(map[int]bool, len(r.Responses))
	for _, resp := range r.Responses {
		if resp.Status < 100 || resp.Status > 599 {
			return fmt.Errorf("%w: %s: status %d", ErrInvalidRoute, r, resp.Status)
		}
		if statuses[resp.Status] {
			return fmt.Errorf("%w: %s: status %d declared twice", ErrInvalidRoute, r, resp.Status)
		}
		statuses[resp.Status] = true
		if resp.Description == "" {
			return fmt.Errorf("%w: %s: status %d has no description", ErrInvalidRoute, r, resp.Status)
		}
		if resp.Shape != "" {
			if resp.ContentType == "" {
				return fmt.Errorf("%w: %s: status %d has a shape but no content type", ErrInvalidRoute, r, resp.Status)
			}
			if _, err := reg.Shape(resp.Shape); err != nil {
				return fmt.Errorf("%w: %s: status %d: %w", ErrInvalidRoute, r, resp.Status, err)
			}
		}
	}
	return nil
}

// Paths returns the distinct patterns of the table in declaration order.
func (t Table) Paths() []string {
	var out []string
	seen := make(map[string]bool, len(t))
	for _, r := range t {
		if !seen[r.Pattern] {
			seen[r.Pattern] = true
			out = append(out, r.Pattern)
		}
	}
	return out
}
