package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"gator-overflow/internal/engine/actors"
	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/gorilla/mux"
)

// multipartOverhead is the allowance for form framing around the image part
const multipartOverhead = 64 * 1024

// UpsertUserRequest is sent by the client after every sign-in
type UpsertUserRequest struct {
	UID         string  `json:"uid" validate:"required"`
	Email       string  `json:"email" validate:"required"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// HandleGetUser returns a user profile
func (s *Server) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.ask(s.Engine.GetUserActor(), &actors.GetUserMsg{UID: mux.Vars(r)["uid"]})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.User), http.StatusOK)
	}
}

// HandleUpsertUser creates the profile on first sign-in and refreshes it after
func (s *Server) HandleUpsertUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertUserRequest
		if appErr := s.decodeAndValidate(r, &req); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		if appErr := s.authorize(r, req.UID); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetUserActor(), &actors.UpsertUserMsg{User: models.UserUpsert{
			UID:         req.UID,
			Email:       req.Email,
			DisplayName: req.DisplayName,
			PhotoURL:    req.PhotoURL,
		}})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.User), http.StatusCreated)
	}
}

// userMutation decodes a patch body for the uid in the path, checks the
// caller may act for that uid and forwards the message built by build.
func (s *Server) userMutation(w http.ResponseWriter, r *http.Request, patch interface{}, build func(uid string) interface{}) {
	uid := mux.Vars(r)["uid"]
	if patch != nil {
		if appErr := s.decodeAndValidate(r, patch); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
	}
	if appErr := s.authorize(r, uid); appErr != nil {
		s.writeAppError(w, appErr)
		return
	}

	result, appErr := s.ask(s.Engine.GetUserActor(), build(uid))
	if appErr != nil {
		s.writeAppError(w, appErr)
		return
	}
	writeJSON(w, result.(*models.User), http.StatusOK)
}

// HandleUpdateProfile sets displayName and/or photoURL
func (s *Server) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.ProfilePatch
		s.userMutation(w, r, &patch, func(uid string) interface{} {
			return &actors.UpdateProfileMsg{UID: uid, Patch: patch}
		})
	}
}

// HandleUpdateNotifications sets the supplied notification flags
func (s *Server) HandleUpdateNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.NotificationSettingsPatch
		s.userMutation(w, r, &patch, func(uid string) interface{} {
			return &actors.UpdateNotificationsMsg{UID: uid, Patch: patch}
		})
	}
}

// HandleUpdateAppearance sets the supplied appearance flags
func (s *Server) HandleUpdateAppearance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.AppearanceSettingsPatch
		s.userMutation(w, r, &patch, func(uid string) interface{} {
			return &actors.UpdateAppearanceMsg{UID: uid, Patch: patch}
		})
	}
}

// HandleClearProfileImage removes the avatar
func (s *Server) HandleClearProfileImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.userMutation(w, r, nil, func(uid string) interface{} {
			return &actors.ClearProfileImageMsg{UID: uid}
		})
	}
}

// HandleUploadProfileImage stores a multipart "image" upload as the avatar
func (s *Server) HandleUploadProfileImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := mux.Vars(r)["uid"]
		if appErr := s.authorize(r, uid); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		image, appErr := s.readImage(w, r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		result, appErr := s.ask(s.Engine.GetUserActor(), &actors.SetProfileImageMsg{UID: uid, Image: image})
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, result.(*models.User), http.StatusOK)
	}
}

// readImage pulls the "image" part out of a multipart body. At most one byte
// past the limit is read so the size check downstream can still trip.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, *utils.AppError) {
	tooLarge := utils.NewValidationError(fmt.Sprintf("image exceeds %d bytes", s.MaxImageSize))

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(s.MaxImageSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		return nil, utils.NewValidationError("Invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, utils.NewValidationError("image is required")
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, s.MaxImageSize+1))
	if err != nil {
		return nil, utils.NewValidationError("Failed to read image")
	}
	return image, nil
}
