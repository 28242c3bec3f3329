package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/book-rankings/internal/repository"
)

type reviewCreateRequest struct {
	Rating  int    `json:"rating" validate:"rating"`
	Content string `json:"content" validate:"required,max=5000"`
}

type reviewUpdateRequest struct {
	Rating  *int    `json:"rating" validate:"omitnil,rating"`
	Content *string `json:"content" validate:"omitnil,min=1,max=5000"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var req reviewCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if !s.validateRequest(w, req) {
		return
	}

	bookID := chi.URLParam(r, "id")
	review, err := s.catalog.CreateReview(r.Context(), repository.ReviewCreateParams{
		BookID:  bookID,
		Rating:  req.Rating,
		Content: req.Content,
	})
	if err != nil {
		s.respondServiceError(w, "create review", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/books/%s/reviews/%s", review.BookID, review.ID))
	s.respondJSON(w, http.StatusCreated, review)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.catalog.Review(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondServiceError(w, "get review", err)
		return
	}
	s.respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Content = trimStringPtr(req.Content)
	if !s.validateRequest(w, req) {
		return
	}

	params := repository.ReviewUpdateParams{Rating: req.Rating, Content: req.Content}
	review, err := s.catalog.UpdateReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewID"), params)
	if err != nil {
		s.respondServiceError(w, "update review", err)
		return
	}
	s.respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	if _, err := s.catalog.DeleteReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reviewID")); err != nil {
		s.respondServiceError(w, "delete review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
