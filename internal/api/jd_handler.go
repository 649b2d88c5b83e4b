package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"cv-processor/internal/apperr"
	"cv-processor/internal/service"
)

const defaultTopK = 10

type FindBestCVsRequest struct {
	JDID string `json:"jd_id"`
	TopK *int   `json:"top_k,omitempty"`
}

type ContactCandidateRequest struct {
	CVID string `json:"cv_id"`
	JDID string `json:"jd_id"`
}

// JDCreateHandler creates a job description
// @Summary Create job description
// @Description Stores the posting and embeds "title requirements". Description defaults to the requirements.
// @Tags jd
// @Accept json
// @Produce json
// @Security SecretKey
// @Param request body service.JobPostingInput true "Job description"
// @Success 200 {object} storage.JobPosting
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/jd/create [post]
func (a *API) JDCreateHandler(w http.ResponseWriter, r *http.Request) {
	var in service.JobPostingInput
	if err := decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}

	jp, err := a.jobs.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jp)
}

// JDListHandler lists job descriptions
// @Summary List job descriptions
// @Tags jd
// @Produce json
// @Security SecretKey
// @Param skip query int false "Records to skip" default(0)
// @Param limit query int false "Maximum records" default(100)
// @Param active_only query bool false "Only active postings" default(true)
// @Param search query string false "Title or requirements substring"
// @Success 200 {array} storage.JobPosting
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/jd/list [get]
func (a *API) JDListHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, true)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	postings, err := a.jobs.List(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postings)
}

// FindBestCVsHandler ranks stored CVs against a job description
// @Summary Find best matching CVs
// @Description Cosine similarity of CV and JD embeddings, best first. top_k defaults to 10 and is capped at 100.
// @Tags jd
// @Accept json
// @Produce json
// @Security SecretKey
// @Param request body FindBestCVsRequest true "Job description id and result size"
// @Success 200 {array} storage.MatchResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/jd/find-best-cvs [post]
func (a *API) FindBestCVsHandler(w http.ResponseWriter, r *http.Request) {
	var req FindBestCVsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.JDID) == "" {
		a.writeError(w, r, &apperr.InputError{Message: "jd_id is required"})
		return
	}

	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	matches, err := a.ranker.FindTopMatches(r.Context(), req.JDID, topK)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// ContactCandidateHandler emails an acceptance to a candidate
// @Summary Contact candidate
// @Description Sends the "Accepted" email for the given CV and job description.
// @Tags jd
// @Accept json
// @Produce json
// @Security SecretKey
// @Param request body ContactCandidateRequest true "CV and job description ids"
// @Success 200 {object} service.ContactResult
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/jd/contact-candidate [post]
func (a *API) ContactCandidateHandler(w http.ResponseWriter, r *http.Request) {
	var req ContactCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CVID) == "" || strings.TrimSpace(req.JDID) == "" {
		a.writeError(w, r, &apperr.InputError{Message: "cv_id and jd_id are required"})
		return
	}

	res, err := a.contacts.Contact(r.Context(), req.CVID, req.JDID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apperr.InputError{Message: "invalid JSON body"}
	}
	return nil
}
