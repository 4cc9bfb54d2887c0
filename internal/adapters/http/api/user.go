package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/userapi/internal/domain/model"
	"github.com/okian/userapi/internal/schema"
	"github.com/okian/userapi/pkg/logger"
	"github.com/okian/userapi/pkg/metrics"
)

// GetUser handles GET /user/{id}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"

	id, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, model.NewUser(id))
}

// parseUserID accepts a base-10 int32 with an optional sign.
func parseUserID(raw string) (int32, error) {
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("id %q is out of the int32 range", raw)
		}
		return 0, fmt.Errorf("id %q is not an integer", raw)
	}
	return int32(n), nil
}

// CreateUser handles POST /user. Nothing is stored; the request is logged.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"

	if !isJSON(r.Header.Get("Content-Type")) {
		writeError(w, http.StatusUnsupportedMediaType, codeUnsupportedMediaType,
			NewKind(op, ErrUnsupportedMediaType))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req model.CreateUserRequest
	if err := schema.DecodeJSON(r.Body, s.createUser, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, WrapKind(op, ErrPayloadTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	s.log.Info(r.Context(), "creating user",
		logger.String("username", req.Username),
		logger.String("email", req.Email),
	)
	metrics.RecordUserCreated()
	writeText(w, http.StatusCreated, "User created")
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
