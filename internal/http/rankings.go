package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/book-rankings/internal/ranking"
)

type presetResponse struct {
	Name       string   `json:"name"`
	Months     int      `json:"months"`
	MinReviews int64    `json:"minReviews"`
	Policies   []string `json:"policies"`
}

type rankingResponse struct {
	Preset string          `json:"preset"`
	Items  []ranking.Entry `json:"items"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.catalog.Presets()
	resp := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		names := make([]string, 0, len(p.Policies))
		for _, policy := range p.Policies {
			names = append(names, policy.Name())
		}
		resp = append(resp, presetResponse{
			Name:       p.Name,
			Months:     p.Months,
			MinReviews: p.MinReviews,
			Policies:   names,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	preset := chi.URLParam(r, "preset")
	entries, err := s.catalog.Rank(r.Context(), preset, titleParam(r.URL.Query()))
	if err != nil {
		s.respondServiceError(w, "rank books", err)
		return
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}
	s.respondJSON(w, http.StatusOK, rankingResponse{Preset: preset, Items: entries})
}
