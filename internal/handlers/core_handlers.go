package handlers

import (
	"net/http"

	"gator-overflow/internal/engine/actors"
	"gator-overflow/internal/models"

	"github.com/gorilla/mux"
)

// CreatePostRequest represents a request to create a new post
type CreatePostRequest struct {
	Title      string   `json:"title" validate:"required"`
	Content    string   `json:"content" validate:"required"`
	AuthorID   string   `json:"authorId"`
	AuthorName string   `json:"authorName"`
	Tags       []string `json:"tags"`
}

// UpdatePostRequest carries the patchable post fields. Absent fields are
// left untouched; other post fields in the body are ignored.
type UpdatePostRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	AuthorName *string  `json:"authorName"`
	Tags       []string `json:"tags"`
}

// AddAnswerRequest represents a request to answer a post
type AddAnswerRequest struct {
	Content    string `json:"content" validate:"required"`
	AuthorID   string `json:"authorId" validate:"required"`
	AuthorName string `json:"authorName"`
}

// VoteRequest represents a request to toggle an upvote
type VoteRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"status":  "ok",
			"message": "Server is running",
		}, http.StatusOK)
	}
}

// HandleListPosts returns all posts, newest first
func (s *Server) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.ListPostsMsg{})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.([]*models.Post), http.StatusOK)
	}
}

// HandleCreatePost creates a post and records its tags
func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.CreatePostMsg{
			Title:      req.Title,
			Content:    req.Content,
			AuthorID:   req.AuthorID,
			AuthorName: req.AuthorName,
			Tags:       req.Tags,
		})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.Post), http.StatusCreated)
	}
}

// HandleGetPost returns one post and counts the view
func (s *Server) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: mux.Vars(r)["id"]})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.Post), http.StatusOK)
	}
}

// HandleUpdatePost applies a partial update
func (s *Server) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePostRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.UpdatePostMsg{
			PostID: mux.Vars(r)["id"],
			Patch: models.PostPatch{
				Title:      req.Title,
				Content:    req.Content,
				AuthorName: req.AuthorName,
				Tags:       req.Tags,
			},
		})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.Post), http.StatusOK)
	}
}

// HandleDeletePost removes a post and its answers
func (s *Server) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, appErr := s.ask(s.Engine.GetPostActor(), &actors.DeletePostMsg{PostID: mux.Vars(r)["id"]}); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAddAnswer appends an answer to a post
func (s *Server) HandleAddAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddAnswerRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.AddAnswerMsg{
			PostID:     mux.Vars(r)["id"],
			Content:    req.Content,
			AuthorID:   req.AuthorID,
			AuthorName: req.AuthorName,
		})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.Post), http.StatusCreated)
	}
}

// HandleTogglePostUpvote flips the caller's upvote on a post
func (s *Server) HandleTogglePostUpvote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoteRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		if appErr := s.authorize(r, req.UserID); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.TogglePostUpvoteMsg{
			PostID: mux.Vars(r)["id"],
			UserID: req.UserID,
		})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.UpvoteState), http.StatusOK)
	}
}

// HandleToggleAnswerUpvote flips the caller's upvote on one answer
func (s *Server) HandleToggleAnswerUpvote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoteRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		if appErr := s.authorize(r, req.UserID); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		vars := mux.Vars(r)
		result, appErr := s.ask(s.Engine.GetPostActor(), &actors.ToggleAnswerUpvoteMsg{
			PostID:   vars["postId"],
			AnswerID: vars["answerId"],
			UserID:   req.UserID,
		})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.UpvoteState), http.StatusOK)
	}
}
