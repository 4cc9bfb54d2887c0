package api

import (
	"errors"
	"net/http"

	"github.com/okian/userapi/internal/adapters/http/multipart"
	"github.com/okian/userapi/internal/domain/model"
	"github.com/okian/userapi/pkg/logger"
	"github.com/okian/userapi/pkg/metrics"
)

// unknownFileName is logged in place of an absent client file name.
const unknownFileName = "Unknown file_name"

// UploadFile handles POST /upload. The file is kept in a scratch location
// until the response is written and is never read back.
func (s *Server) UploadFile(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_file"

	form, err := s.uploads.Decode(w, r)
	if err != nil {
		status, code, kind := classifyUploadError(err)
		writeError(w, status, code, WrapKind(op, kind, err))
		return
	}
	defer func() {
		if err := form.Close(); err != nil {
			s.log.Warn(r.Context(), "failed to remove upload scratch file", logger.Error(err))
		}
	}()

	file, _ := form.File("file")
	req := model.UploadFileRequest{File: file, Description: form.Value("description")}

	logged := req.File.FileName
	if !req.File.HasFileName() {
		logged = unknownFileName
	}
	s.log.Info(r.Context(), "uploaded file",
		logger.String("file_name", logged),
		logger.String("description", req.Description),
		logger.Int64("size", req.File.Size),
	)
	metrics.RecordUploadBytes(req.File.Size)

	if !req.File.HasFileName() {
		writeError(w, http.StatusInternalServerError, codeMissingFileName, NewKind(op, ErrMissingFileName))
		return
	}
	writeText(w, http.StatusOK, "Uploaded %s with description: %s", req.File.FileName, req.Description)
}

func classifyUploadError(err error) (int, string, error) {
	switch {
	case errors.Is(err, multipart.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, codePayloadTooLarge, ErrPayloadTooLarge
	case errors.Is(err, multipart.ErrScratch):
		return http.StatusInternalServerError, codeInternal, ErrInternal
	default:
		return http.StatusBadRequest, codeBadRequest, ErrBadRequest
	}
}
