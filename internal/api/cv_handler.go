package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"cv-processor/internal/apperr"
	"cv-processor/internal/cv"
	"cv-processor/internal/storage"
)

// CVUploadHandler handles CV uploads and extraction
// @Summary Upload and parse CV
// @Description Upload a CV (PDF or DOCX) as the raw request body, or as the "file" field of a multipart form.
// @Description The candidate name and email are extracted and must be present; the email must be new.
// @Tags cv
// @Accept application/pdf
// @Accept application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Accept application/octet-stream
// @Accept multipart/form-data
// @Produce json
// @Security SecretKey
// @Param Content-Disposition header string false "attachment; filename=\"resume.pdf\""
// @Success 200 {object} storage.CVRecord
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/cv/upload [post]
func (a *API) CVUploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes)

	doc, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large (max %d bytes)", a.opts.MaxUploadBytes))
			return
		}
		a.writeError(w, r, err)
		return
	}

	rec, err := a.cvs.Ingest(r.Context(), doc)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// readUpload reads the document from a raw body or a multipart "file" field.
func readUpload(r *http.Request) (cv.RawDocument, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return cv.RawDocument{}, err
			}
			return cv.RawDocument{}, &apperr.InputError{Message: "No file content provided"}
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return cv.RawDocument{}, err
		}
		return cv.RawDocument{
			Data:        data,
			ContentType: header.Header.Get("Content-Type"),
			Filename:    header.Filename,
		}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return cv.RawDocument{}, err
	}
	return cv.RawDocument{
		Data:        data,
		ContentType: r.Header.Get("Content-Type"),
		Filename:    cv.FilenameFromDisposition(r.Header.Get("Content-Disposition")),
	}, nil
}

// CVListHandler lists stored CVs
// @Summary List CVs
// @Description Newest first, optionally filtered by name or email.
// @Tags cv
// @Produce json
// @Security SecretKey
// @Param skip query int false "Records to skip" default(0)
// @Param limit query int false "Maximum records" default(100)
// @Param search query string false "Name or email substring"
// @Success 200 {array} storage.CVRecord
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/cv/list [get]
func (a *API) CVListHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	cvs, err := a.cvs.List(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cvs)
}

func parseListParams(r *http.Request, withActive bool) (storage.ListParams, error) {
	q := r.URL.Query()
	params := storage.ListParams{
		Limit:  storage.DefaultListLimit,
		Search: strings.TrimSpace(q.Get("search")),
	}

	var err error
	if v := q.Get("skip"); v != "" {
		if params.Skip, err = strconv.Atoi(v); err != nil || params.Skip < 0 {
			return params, &apperr.InputError{Message: "skip must be a non-negative integer"}
		}
	}
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil || params.Limit < 1 {
			return params, &apperr.InputError{Message: "limit must be a positive integer"}
		}
	}
	if withActive {
		params.ActiveOnly = true
		if v := q.Get("active_only"); v != "" {
			if params.ActiveOnly, err = strconv.ParseBool(v); err != nil {
				return params, &apperr.InputError{Message: "active_only must be a boolean"}
			}
		}
	}
	return params, nil
}
