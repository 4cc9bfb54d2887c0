// Package docs builds the machine-readable API description.
//
// The description is assembled once at startup from the route table and the
// schema registry, validated, and kept as immutable JSON and YAML bytes.
package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/okian/userapi/internal/route"
	"github.com/okian/userapi/internal/schema"
)

// OpenAPIVersion is the version of the emitted document.
const OpenAPIVersion = "3.0.3"

// Info is the description header.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Description is the materialized API description. It is read-only once
// built.
type Description struct {
	doc      *openapi3.T
	jsonBody []byte
	yamlBody []byte
}

// Build assembles and validates the description of table.
func Build(ctx context.Context, info Info, table route.Table, reg *schema.Registry) (*Description, error) {
	const op = "docs.build"

	if err := table.Validate(reg); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrBuild, err)
	}

	doc := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: reg.Components()},
	}

	for _, r := range table {
		operation, err := buildOperation(r, reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrBuild, err)
		}
		item := doc.Paths.Value(r.Pattern)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(r.Pattern, item)
		}
		item.SetOperation(r.Method, operation)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidDocument, err)
	}

	jsonBody, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: json: %w", op, ErrBuild, err)
	}
	yamlBody, err := toYAML(jsonBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: yaml: %w", op, ErrBuild, err)
	}

	return &Description{doc: doc, jsonBody: jsonBody, yamlBody: yamlBody}, nil
}

func buildOperation(r route.Route, reg *schema.Registry) (*openapi3.Operation, error) {
	operation := &openapi3.Operation{
		OperationID: r.OperationID,
		Summary:     r.Summary,
		Responses:   openapi3.NewResponsesWithCapacity(len(r.Responses)),
	}

	for _, p := range r.Params {
		param := openapi3.NewPathParameter(p.Name).
			WithSchema(p.Kind.Schema()).
			WithDescription(p.Description)
		operation.Parameters = append(operation.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if r.Body != nil {
		shape, err := reg.Shape(r.Body.Shape)
		if err != nil {
			return nil, err
		}
		body := openapi3.NewRequestBody().
			WithRequired(true).
			WithContent(openapi3.NewContentWithSchemaRef(shape.Ref(), []string{r.Body.ContentType}))
		operation.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	for _, resp := range r.Responses {
		out := openapi3.NewResponse().WithDescription(resp.Description)
		switch {
		case resp.Shape != "":
			shape, err := reg.Shape(resp.Shape)
			if err != nil {
				return nil, err
			}
			out.WithContent(openapi3.NewContentWithSchemaRef(shape.Ref(), []string{resp.ContentType}))
		case resp.ContentType != "":
			out.WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{resp.ContentType}))
		}
		operation.Responses.Set(strconv.Itoa(resp.Status), &openapi3.ResponseRef{Value: out})
	}

	return operation, nil
}

// toYAML re-encodes a JSON document as block-style YAML, keeping key order.
func toYAML(jsonBody []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(jsonBody, &node); err != nil {
		return nil, err
	}
	resetStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}

// Document returns the underlying OpenAPI document. Callers must not mutate it.
func (d *Description) Document() *openapi3.T {
	return d.doc
}

// JSON returns the indented JSON encoding.
func (d *Description) JSON() []byte {
	return d.jsonBody
}

// YAML returns the YAML encoding.
func (d *Description) YAML() []byte {
	return d.yamlBody
}

// Paths lists the documented path templates in sorted order.
func (d *Description) Paths() []string {
	m := d.doc.Paths.Map()
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
