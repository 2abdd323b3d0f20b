package server

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/validate"
)

// UploadField is the multipart field carrying lab order files.
const UploadField = "labOrder"

// in-memory part of a multipart form; the rest spills to temp files
const multipartMemory = 8 << 20

// handleSanitize accepts one or more .txt files under UploadField. Every file
// is validated before any is sanitized; the first failure ends the request.
func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			s.rejectTooLarge(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.rejectTooLarge(w)
			return
		}
		s.metrics.RecordRejected("missing_file")
		writeBadRequest(w, validate.ErrMissingFile.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[UploadField]
	uploads := make([]validate.Upload, len(files))
	for i, fh := range files {
		uploads[i] = validate.Upload{Name: fh.Filename, Size: fh.Size}
	}
	if err := validate.Files(uploads); err != nil {
		s.metrics.RecordRejected(rejectReason(err))
		writeBadRequest(w, err.Error())
		return
	}

	for _, fh := range files {
		if err := s.sanitizeUpload(r, fh); err != nil {
			s.log.ErrorContext(r.Context(), "sanitize failed",
				"request_id", RequestID(r.Context()),
				"file", fh.Filename,
				"error", err)
			writeProblem(w, r, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) sanitizeUpload(r *http.Request, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		err = &sanitize.InputReadError{Name: fh.Filename, Err: err}
		s.record(sanitize.Stats{Input: fh.Filename}, err)
		return err
	}
	defer f.Close()
	st, err := s.sanitizer.Sanitize(r.Context(), sanitize.Document{Name: fh.Filename, Body: f}, s.sink)
	s.record(st, err)
	return err
}

func (s *Server) record(st sanitize.Stats, err error) {
	s.metrics.RecordSanitize(audit.SourceServer, st, err)
	if s.audit == nil {
		return
	}
	if aerr := s.audit.Log(audit.NewRecord(audit.SourceServer, st, err)); aerr != nil {
		s.log.Warn("audit write failed", "error", aerr)
	}
}

func (s *Server) rejectTooLarge(w http.ResponseWriter) {
	s.metrics.RecordRejected("too_large")
	http.Error(w, "Upload too large.", http.StatusRequestEntityTooLarge)
}

func rejectReason(err error) string {
	if errors.Is(err, validate.ErrNotText) {
		return "not_text"
	}
	return "missing_file"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
