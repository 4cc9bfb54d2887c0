// Package schema is the registry of data shapes exchanged over HTTP.
//
// A Shape lists its fields once; the same declaration drives the API
// description (OpenAPI component schemas) and request decoding, so the
// documented and the enforced contract cannot diverge.
package schema

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Shape names registered by Default.
const (
	User              = "User"
	CreateUserRequest = "CreateUserRequest"
	UploadFileRequest = "UploadFileRequest"
	ErrorResponse     = "ErrorResponse"
)

const componentsPrefix = "#/components/schemas/"

// Kind is the wire type of a field.
type Kind int

// Field kinds.
const (
	KindString Kind = iota + 1
	KindInt32
	KindBinary // file content, only meaningful in multipart bodies
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Schema returns a fresh documentation schema for k.
func (k Kind) Schema() *openapi3.Schema {
	switch k {
	case KindInt32:
		return openapi3.NewInt32Schema()
	case KindBinary:
		return openapi3.NewStringSchema().WithFormat("binary")
	default:
		return openapi3.NewStringSchema()
	}
}

// Field is one named member of a Shape.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
}

// Shape is a named object type.
type Shape struct {
	Name        string
	Description string
	Fields      []Field
}

// Schema builds the object schema of s.
func (s Shape) Schema() *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	obj.Description = s.Description
	for _, f := range s.Fields {
		prop := f.Kind.Schema()
		prop.Description = f.Description
		obj.WithProperty(f.Name, prop)
		if f.Required {
			obj.Required = append(obj.Required, f.Name)
		}
	}
	return obj
}

// RefPath is the JSON pointer of s inside the API description.
func (s Shape) RefPath() string {
	return componentsPrefix + s.Name
}

// Ref returns a resolved reference to s.
func (s Shape) Ref() *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(s.RefPath(), s.Schema())
}

// Field looks a field up by wire name.
func (s Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields lists required field names in declaration order.
func (s Shape) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Registry is an ordered set of uniquely named shapes.
type Registry struct {
	shapes []Shape
	index  map[string]int
}

// NewRegistry validates and indexes shapes.
func NewRegistry(shapes ...Shape) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(shapes))}
	for _, s := range shapes {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: shape without name", ErrInvalidShape)
		}
		if _, dup := r.index[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate shape %q", ErrInvalidShape, s.Name)
		}
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" || seen[f.Name] {
				return nil, fmt.Errorf("%w: shape %q has an empty or duplicate field %q", ErrInvalidShape, s.Name, f.Name)
			}
			if f.Kind < KindString || f.Kind > KindBinary {
				return nil, fmt.Errorf("%w: shape %q field %q has %s", ErrInvalidShape, s.Name, f.Name, f.Kind)
			}
			seen[f.Name] = true
		}
		r.index[s.Name] = len(r.shapes)
		r.shapes = append(r.shapes, s)
	}
	return r, nil
}

// Shape returns the shape registered under name.
func (r *Registry) Shape(name string) (Shape, error) {
	i, ok := r.index[name]
	if !ok {
		return Shape{}, fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return r.shapes[i], nil
}

// Shapes returns every registered shape in registration order.
func (r *Registry) Shapes() []Shape {
	out := make([]Shape, len(r.shapes))
	copy(out, r.shapes)
	return out
}

// Components returns the component schemas of every registered shape.
func (r *Registry) Components() openapi3.Schemas {
	out := make(openapi3.Schemas, len(r.shapes))
	for _, s := range r.shapes {
		out[s.Name] = openapi3.NewSchemaRef("", s.Schema())
	}
	return out
}

// Default returns the registry of the service's shapes.
func Default() *Registry {
	r, err := NewRegistry(
		Shape{
			Name: User,
			Fields: []Field{
				{Name: "id", Kind: KindInt32, Required: true},
				{Name: "username", Kind: KindString, Required: true},
			},
		},
		Shape{
			Name: CreateUserRequest,
			Fields: []Field{
				{Name: "username", Kind: KindString, Required: true},
				{Name: "email", Kind: KindString, Required: true},
			},
		},
		Shape{
			Name: UploadFileRequest,
			Fields: []Field{
				{Name: "file", Kind: KindBinary, Required: true},
				{Name: "description", Kind: KindString, Required: true},
			},
		},
		Shape{
			Name:        ErrorResponse,
			Description: "Error envelope returned with every 4xx and 5xx response",
			Fields: []Field{
				{Name: "code", Kind: KindString, Required: true},
				{Name: "message", Kind: KindString, Required: true},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
