// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/userapi/internal/adapters/http/multipart"
	"github.com/okian/userapi/internal/route"
	"github.com/okian/userapi/internal/schema"
	"github.com/okian/userapi/pkg/logger"
)

// Error codes carried in errorResponse.Code.
const (
	codeBadRequest           = "bad_request"
	codeUnsupportedMediaType = "unsupported_media_type"
	codePayloadTooLarge      = "payload_too_large"
	codeMissingFileName      = "missing_file_name"
	codeInternal             = "internal_error"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger handlers report through.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegistry sets the registry request shapes are resolved from.
func WithRegistry(reg *schema.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.reg = reg
		}
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithUploadOptions configures the multipart decoder used by upload_file.
func WithUploadOptions(opts ...multipart.Option) Option {
	return func(s *Server) {
		s.uploadOpts = append(s.uploadOpts, opts...)
	}
}

// Server holds the handlers of the user API.
type Server struct {
	log          logger.Logger
	reg          *schema.Registry
	maxBodyBytes int64
	uploadOpts   []multipart.Option

	createUser schema.Shape
	uploads    *multipart.Decoder
}

// NewServer resolves the request shapes and builds the handlers.
func NewServer(opts ...Option) (*Server, error) {
	const op = "api.new_server"

	s := &Server{
		log:          logger.Nop(),
		reg:          schema.Default(),
		maxBodyBytes: multipart.DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.createUser, err = s.reg.Shape(schema.CreateUserRequest); err != nil {
		return nil, Wrap(op, err)
	}
	upload, err := s.reg.Shape(schema.UploadFileRequest)
	if err != nil {
		return nil, Wrap(op, err)
	}
	decoderOpts := append([]multipart.Option{multipart.WithMaxBytes(s.maxBodyBytes)}, s.uploadOpts...)
	s.uploads = multipart.NewDecoder(upload, decoderOpts...)
	return s, nil
}

// Registry returns the registry the server resolves shapes from.
func (s *Server) Registry() *schema.Registry {
	return s.reg
}

// Routes declares the API operations. The same table drives the router and
// the API description.
func (s *Server) Routes() route.Table {
	return route.Table{
		{
			Method:      http.MethodGet,
			Pattern:     "/user/{id}",
			OperationID: "get_user",
			Summary:     "Get user by id",
			Params: []route.Param{
				{Name: "id", Kind: schema.KindInt32, Description: "User database id"},
			},
			Responses: []route.Response{
				{Status: http.StatusOK, Description: "User found", ContentType: route.ContentJSON, Shape: schema.User},
				{Status: http.StatusBadRequest, Description: "Id is not a 32-bit integer", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
				{Status: http.StatusNotFound, Description: "User not found"},
			},
			Handler: s.GetUser,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/user",
			OperationID: "create_user",
			Summary:     "Create a new user",
			Body:        &route.Body{ContentType: route.ContentJSON, Shape: schema.CreateUserRequest},
			Responses: []route.Response{
				{Status: http.StatusCreated, Description: "User created", ContentType: route.ContentText},
				{Status: http.StatusBadRequest, Description: "Malformed body or missing field", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
				{Status: http.StatusRequestEntityTooLarge, Description: "Body too large", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
				{Status: http.StatusUnsupportedMediaType, Description: "Body is not JSON", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
			},
			Handler: s.CreateUser,
		},
		{
			Method:      http.MethodPost,
			Pattern:     "/upload",
			OperationID: "upload_file",
			Summary:     "Upload a file with a description",
			Body:        &route.Body{ContentType: route.ContentMultipart, Shape: schema.UploadFileRequest},
			Responses: []route.Response{
				{Status: http.StatusOK, Description: "File uploaded", ContentType: route.ContentText},
				{Status: http.StatusBadRequest, Description: "Malformed form or missing part", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
				{Status: http.StatusRequestEntityTooLarge, Description: "Body too large", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
				{Status: http.StatusInternalServerError, Description: "File has no name or could not be stored", ContentType: route.ContentJSON, Shape: schema.ErrorResponse},
			},
			Handler: s.UploadFile,
		},
	}
}

// errorResponse mirrors the ErrorResponse shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
