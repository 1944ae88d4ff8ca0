package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sorasolar/site-api/internal/adapter/geojson"
	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/pipeline"
)

const contentTypeGeoJSON = "application/geo+json"

type groupsResponse struct {
	Strategy domain.Strategy   `json:"strategy"`
	Groups   []domain.GeoGroup `json:"groups"`
}

type contactResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (s *Server) handleRooftops(w http.ResponseWriter, r *http.Request) {
	rooftops, err := s.maps.Rooftops(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooftops)
}

func (s *Server) handlePartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.maps.Partners(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, partners)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	strategy, groups, ok := s.groups(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Strategy: strategy, Groups: groups})
}

func (s *Server) handleGroupsGeoJSON(w http.ResponseWriter, r *http.Request) {
	_, groups, ok := s.groups(w, r)
	if !ok {
		return
	}
	s.writeGeoJSON(w, r, func() ([]byte, error) { return geojson.Marshal(geojson.Groups(groups)) })
}

func (s *Server) handleRooftopsGeoJSON(w http.ResponseWriter, r *http.Request) {
	rooftops, err := s.maps.Rooftops(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeGeoJSON(w, r, func() ([]byte, error) { return geojson.Marshal(geojson.Rooftops(rooftops)) })
}

func (s *Server) handleRooftop(w http.ResponseWriter, r *http.Request) {
	detail, err := s.maps.Rooftop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(s.clientIPs.resolve(r)) {
		s.contacts.RecordRateLimited()
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	sub, err := decode[domain.ContactSubmission](w, r)
	if err != nil {
		LoggerFromContext(r.Context(), s.logger).Debug("contact body rejected", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	lead, err := s.contacts.Submit(r.Context(), sub)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Issues: verr.Issues})
			return
		}
		LoggerFromContext(r.Context(), s.logger).Error("contact submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error"})
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Status: "ok", ID: lead.ID})
}

// groups resolves the strategy query parameter and runs the pipeline. It
// writes the error response itself and reports false on failure.
func (s *Server) groups(w http.ResponseWriter, r *http.Request) (domain.Strategy, []domain.GeoGroup, bool) {
	strategy := s.maps.DefaultStrategy()
	if raw := r.URL.Query().Get("strategy"); raw != "" {
		parsed, err := domain.ParseStrategy(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return "", nil, false
		}
		strategy = parsed
	}

	groups, err := s.maps.Groups(r.Context(), strategy)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", nil, false
	}
	return strategy, groups, true
}

func (s *Server) writeGeoJSON(w http.ResponseWriter, r *http.Request, encode func() ([]byte, error)) {
	data, err := encode()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeGeoJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client may have gone away
}

// writeServiceError maps pipeline errors onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrDataUnavailable):
		LoggerFromContext(r.Context(), s.logger).Warn("dataset unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, pipeline.ErrDataUnavailable.Error())
	case errors.Is(err, pipeline.ErrPartnersUnavailable):
		LoggerFromContext(r.Context(), s.logger).Warn("dataset unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, pipeline.ErrPartnersUnavailable.Error())
	case errors.Is(err, pipeline.ErrRooftopNotFound):
		writeError(w, http.StatusNotFound, "rooftop not found")
	case errors.Is(err, domain.ErrUnknownStrategy):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		LoggerFromContext(r.Context(), s.logger).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
