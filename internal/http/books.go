package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/book-rankings/internal/catalog"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

type bookCreateRequest struct {
	Title  string `json:"title" validate:"required,max=255"`
	Author string `json:"author" validate:"max=255"`
}

type bookUpdateRequest struct {
	Title  *string `json:"title" validate:"omitnil,min=1,max=255"`
	Author *string `json:"author" validate:"omitnil,max=255"`
}

type bookListResponse struct {
	Items      []catalog.BookCard `json:"items"`
	NextCursor *string            `json:"nextCursor,omitempty"`
}

type aggregateListResponse struct {
	Items []catalog.BookCard `json:"items"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	filters, err := buildBookFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	page, err := s.catalog.ListBooks(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, "list books", err)
		return
	}

	items := page.Items
	if items == nil {
		items = []catalog.BookCard{}
	}
	s.respondJSON(w, http.StatusOK, bookListResponse{Items: items, NextCursor: page.NextCursor})
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	window, err := buildWindow(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	cards, err := s.catalog.Aggregate(r.Context(), titleParam(query), window)
	if err != nil {
		s.respondServiceError(w, "aggregate reviews", err)
		return
	}
	if cards == nil {
		cards = []catalog.BookCard{}
	}
	s.respondJSON(w, http.StatusOK, aggregateListResponse{Items: cards})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	detail, err := s.catalog.BookDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "fetch book", err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var req bookCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if !s.validateRequest(w, req) {
		return
	}

	book, err := s.catalog.CreateBook(r.Context(), repository.BookCreateParams{
		Title:  req.Title,
		Author: req.Author,
	})
	if err != nil {
		s.respondServiceError(w, "create book", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/books/%s", book.ID))
	s.respondJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var req bookUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = trimStringPtr(req.Title)
	req.Author = trimStringPtr(req.Author)
	if !s.validateRequest(w, req) {
		return
	}

	book, err := s.catalog.UpdateBook(r.Context(), chi.URLParam(r, "id"), repository.BookUpdateParams{
		Title:  req.Title,
		Author: req.Author,
	})
	if err != nil {
		s.respondServiceError(w, "update book", err)
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	if _, err := s.catalog.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, "delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
