package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation, served without the secret key
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	mux.HandleFunc("GET /health", a.HealthHandler)

	// CV endpoints
	mux.HandleFunc("POST /api/cv/upload", a.CVUploadHandler)
	mux.HandleFunc("GET /api/cv/list", a.CVListHandler)

	// Job description endpoints
	mux.HandleFunc("POST /api/jd/create", a.JDCreateHandler)
	mux.HandleFunc("GET /api/jd/list", a.JDListHandler)
	mux.HandleFunc("POST /api/jd/find-best-cvs", a.FindBestCVsHandler)
	mux.HandleFunc("POST /api/jd/contact-candidate", a.ContactCandidateHandler)

	return a.logRequests(a.requireSecretKey(mux))
}
