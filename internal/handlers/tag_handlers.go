package handlers

import (
	"net/http"

	"gator-overflow/internal/engine/actors"
	"gator-overflow/internal/models"

	"github.com/gorilla/mux"
)

// UpsertTagsRequest records one usage of each named tag
type UpsertTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

// HandleListTags returns all tags, most used first
func (s *Server) HandleListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.ask(s.Engine.GetTagActor(), &actors.ListTagsMsg{})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.([]*models.Tag), http.StatusOK)
	}
}

// HandleGetTag looks a tag up by name, ignoring case
func (s *Server) HandleGetTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.ask(s.Engine.GetTagActor(), &actors.GetTagMsg{Name: mux.Vars(r)["name"]})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.Tag), http.StatusOK)
	}
}

// HandleUpsertTags creates or bumps the named tags
func (s *Server) HandleUpsertTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertTagsRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetTagActor(), &actors.UpsertTagsMsg{Names: req.Tags})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.([]*models.Tag), http.StatusCreated)
	}
}

// HandleDeleteTag removes a tag record
func (s *Server) HandleDeleteTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, appErr := s.ask(s.Engine.GetTagActor(), &actors.DeleteTagMsg{TagID: mux.Vars(r)["id"]}); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
