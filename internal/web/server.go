package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/queue"
	"github.com/cardamom-srs/cardamom/internal/srs"
	"github.com/cardamom-srs/cardamom/internal/stats"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	router   *http.ServeMux
	users    UserResolver
	queues   *queue.Builder
	stats    *stats.Aggregator
	reviews  *srs.Service
	validate *validator.Validate
}

// NewServer creates and configures a new server.
func NewServer(users UserResolver, queues *queue.Builder, aggregator *stats.Aggregator, reviews *srs.Service) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		users:    users,
		queues:   queues,
		stats:    aggregator,
		reviews:  reviews,
		validate: validator.New(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/srs/review-queue", s.handleReviewQueue())
	s.router.HandleFunc("/api/srs/cram-queue", s.handleCramQueue())
	s.router.HandleFunc("/api/srs/review", s.handlePostReview())
	s.router.HandleFunc("/api/srs/stats", s.handleStats())
	s.router.HandleFunc("/api/current-user", s.handleCurrentUser())
}

// handleReviewQueue returns the cards due or new for the current user,
// optionally scoped by ?deckId=.
func (s *Server) handleReviewQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := s.users.CurrentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		deckID, err := optionalDeckID(r)
		if err != nil {
			http.Error(w, "Invalid deckId", http.StatusBadRequest)
			return
		}

		entries, err := s.queues.ReviewQueue(r.Context(), user.ID, deckID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// handleCramQueue returns every card of one deck; ?deckId= is required.
func (s *Server) handleCramQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := s.users.CurrentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		deckID, err := optionalDeckID(r)
		if err != nil || deckID == nil {
			http.Error(w, "deckId is required", http.StatusBadRequest)
			return
		}

		entries, err := s.queues.CramQueue(r.Context(), user.ID, *deckID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type reviewRequest struct {
	CardID  int64 `json:"cardId" validate:"required"`
	Quality int   `json:"quality" validate:"required,oneof=1 3 4 5"`
}

// handlePostReview applies a grade to a card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := s.users.CurrentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && fieldErrs[0].Field() == "Quality" {
				writeError(w, domain.ErrInvalidGrade)
				return
			}
			http.Error(w, "cardId is required", http.StatusBadRequest)
			return
		}

		if _, err := s.reviews.SubmitReview(r.Context(), user.ID, req.CardID, domain.Grade(req.Quality)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleStats returns the study-progress counts, optionally scoped by
// ?deckId=.
func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := s.users.CurrentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		deckID, err := optionalDeckID(r)
		if err != nil {
			http.Error(w, "Invalid deckId", http.StatusBadRequest)
			return
		}

		summary, err := s.stats.Summary(r.Context(), user.ID, deckID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// handleCurrentUser echoes the resolved identity so the UI can render the
// profile widget.
func (s *Server) handleCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := s.users.CurrentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func optionalDeckID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("deckId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps engine errors onto HTTP status codes. Messages pass
// through untransformed; the UI displays them directly.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidGrade):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
