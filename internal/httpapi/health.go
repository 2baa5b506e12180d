package httpapi

import (
	"net/http"
)

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// HandleHealth reports process liveness. The notifier holds no backing stores
// to probe; a responding process is a healthy one. Build metadata is included
// so deployed versions can be identified without shell access.
//
// This endpoint is public and mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: s.Config.Service,
		Version: s.Config.Build.Version,
		Commit:  s.Config.Build.Commit,
	})
}
