package actors

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Message types for User operations
type (
	GetUserMsg struct {
		UID string
	}

	UpsertUserMsg struct {
		User models.UserUpsert
	}

	UpdateProfileMsg struct {
		UID   string
		Patch models.ProfilePatch
	}

	UpdateNotificationsMsg struct {
		UID   string
		Patch models.NotificationSettingsPatch
	}

	UpdateAppearanceMsg struct {
		UID   string
		Patch models.AppearanceSettingsPatch
	}

	// SetProfileImageMsg carries raw upload bytes. The actor checks size and
	// content type and stores the image inline as a data URI.
	SetProfileImageMsg struct {
		UID   string
		Image []byte
	}

	ClearProfileImageMsg struct {
		UID string
	}
)

// Accepted avatar content types
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// UserActor handles user profile operations
type UserActor struct {
	storeActor
	maxImageSize int64
}

func NewUserActor(store database.DBAdapter, metrics *utils.MetricsCollector, logger *zap.Logger, timeout time.Duration, maxImageSize int64) actor.Actor {
	return &UserActor{
		storeActor:   newStoreActor("user", store, metrics, logger, timeout),
		maxImageSize: maxImageSize,
	}
}

func (a *UserActor) Receive(context actor.Context) {
	if a.lifecycle(context) {
		return
	}

	switch msg := context.Message().(type) {
	case *GetUserMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		user, err := a.store.GetUserByUID(ctx, msg.UID)
		a.respond(context, "get_user", startTime, user, err)

	case *UpsertUserMsg:
		a.handleUpsertUser(context, msg)

	case *UpdateProfileMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		user, err := a.store.UpdateProfile(ctx, msg.UID, msg.Patch)
		a.respond(context, "update_profile", startTime, user, err)

	case *UpdateNotificationsMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		user, err := a.store.UpdateNotificationSettings(ctx, msg.UID, msg.Patch)
		a.respond(context, "update_notifications", startTime, user, err)

	case *UpdateAppearanceMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		user, err := a.store.UpdateAppearance(ctx, msg.UID, msg.Patch)
		a.respond(context, "update_appearance", startTime, user, err)

	case *SetProfileImageMsg:
		a.handleSetProfileImage(context, msg)

	case *ClearProfileImageMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		empty := ""
		user, err := a.store.UpdateProfile(ctx, msg.UID, models.ProfilePatch{PhotoURL: &empty})
		a.respond(context, "clear_profile_image", startTime, user, err)

	default:
		a.logger.Warn("Unknown message type", zap.String("type", typeName(msg)))
	}
}

func (a *UserActor) handleUpsertUser(context actor.Context, msg *UpsertUserMsg) {
	startTime := time.Now()

	in := msg.User
	in.Email = strings.TrimSpace(in.Email)
	if in.UID == "" || in.Email == "" {
		a.respond(context, "upsert_user", startTime, nil, utils.NewValidationError("uid and email are required"))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	user, err := a.store.UpsertUser(ctx, in)
	a.respond(context, "upsert_user", startTime, user, err)
}

func (a *UserActor) handleSetProfileImage(context actor.Context, msg *SetProfileImageMsg) {
	startTime := time.Now()

	dataURI, err := EncodeProfileImage(msg.Image, a.maxImageSize)
	if err != nil {
		a.respond(context, "set_profile_image", startTime, nil, err)
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	user, err := a.store.UpdateProfile(ctx, msg.UID, models.ProfilePatch{PhotoURL: &dataURI})
	a.respond(context, "set_profile_image", startTime, user, err)
}

// EncodeProfileImage sniffs the image type and returns it as a base64 data
// URI. Empty, oversized or non jpeg/png/gif input is a validation error.
func EncodeProfileImage(image []byte, maxSize int64) (string, error) {
	if len(image) == 0 {
		return "", utils.NewValidationError("image is required")
	}
	if maxSize > 0 && int64(len(image)) > maxSize {
		return "", utils.NewValidationError(fmt.Sprintf("image exceeds %d bytes", maxSize))
	}

	mime := mimetype.Detect(image)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return "", utils.NewValidationError("image must be jpeg, png or gif")
	}

	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}
