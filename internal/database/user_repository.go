// internal/database/user_repository.go
package database

import (
	"context"
	"errors"
	"time"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument represents the MongoDB schema for a user. The identity
// provider's uid is the primary key.
type UserDocument struct {
	UID                  string                       `bson:"_id"`
	Email                string                       `bson:"email"`
	DisplayName          string                       `bson:"displayName"`
	PhotoURL             string                       `bson:"photoURL"`
	NotificationSettings NotificationSettingsDocument `bson:"notificationSettings"`
	Appearance           AppearanceDocument           `bson:"appearance"`
	CreatedAt            time.Time                    `bson:"createdAt"`
	UpdatedAt            time.Time                    `bson:"updatedAt"`
}

type NotificationSettingsDocument struct {
	EmailNotifications  bool `bson:"emailNotifications"`
	WeeklyDigest        bool `bson:"weeklyDigest"`
	UpvoteNotifications bool `bson:"upvoteNotifications"`
}

type AppearanceDocument struct {
	DarkMode               bool `bson:"darkMode"`
	CompactView            bool `bson:"compactView"`
	CodeSyntaxHighlighting bool `bson:"codeSyntaxHighlighting"`
}

func userDocumentToModel(doc *UserDocument) *models.User {
	return &models.User{
		UID:         doc.UID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		PhotoURL:    doc.PhotoURL,
		NotificationSettings: models.NotificationSettings{
			EmailNotifications:  doc.NotificationSettings.EmailNotifications,
			WeeklyDigest:        doc.NotificationSettings.WeeklyDigest,
			UpvoteNotifications: doc.NotificationSettings.UpvoteNotifications,
		},
		Appearance: models.AppearanceSettings{
			DarkMode:               doc.Appearance.DarkMode,
			CompactView:            doc.Appearance.CompactView,
			CodeSyntaxHighlighting: doc.Appearance.CodeSyntaxHighlighting,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// GetUserByUID retrieves a user by identity-provider uid.
func (m *MongoDB) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("User")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("fetch user", err)
	}
	return userDocumentToModel(&doc), nil
}

// UpsertUser creates the user with default settings on first sign-in and
// refreshes the identity fields on every later one. Two concurrent first
// sign-ins for one uid race on _id; the loser retries once and finds the
// document. A duplicate key that survives the retry is the email index.
func (m *MongoDB) UpsertUser(ctx context.Context, in models.UserUpsert) (*models.User, error) {
	user, err := m.upsertUserOnce(ctx, in)
	if mongo.IsDuplicateKeyError(err) {
		user, err = m.upsertUserOnce(ctx, in)
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, utils.NewAppError(utils.ErrDuplicate, "Email already in use", err)
	}
	if err != nil {
		return nil, utils.NewDatabaseError("upsert user", err)
	}
	return user, nil
}

func (m *MongoDB) upsertUserOnce(ctx context.Context, in models.UserUpsert) (*models.User, error) {
	now := time.Now().UTC()
	defaults := models.DefaultNotificationSettings()
	appearance := models.DefaultAppearanceSettings()

	set := bson.M{
		"email":     in.Email,
		"updatedAt": now,
	}
	setOnInsert := bson.M{
		"createdAt": now,
		"notificationSettings": NotificationSettingsDocument{
			EmailNotifications:  defaults.EmailNotifications,
			WeeklyDigest:        defaults.WeeklyDigest,
			UpvoteNotifications: defaults.UpvoteNotifications,
		},
		"appearance": AppearanceDocument{
			DarkMode:               appearance.DarkMode,
			CompactView:            appearance.CompactView,
			CodeSyntaxHighlighting: appearance.CodeSyntaxHighlighting,
		},
	}
	if in.DisplayName != nil {
		set["displayName"] = *in.DisplayName
	} else {
		setOnInsert["displayName"] = models.DefaultDisplayName(in.Email)
	}
	if in.PhotoURL != nil {
		set["photoURL"] = *in.PhotoURL
	} else {
		setOnInsert["photoURL"] = ""
	}

	update := bson.M{"$set": set, "$setOnInsert": setOnInsert}
	var doc UserDocument
	if err := m.Users.FindOneAndUpdate(ctx, bson.M{"_id": in.UID}, update, afterUpdate().SetUpsert(true)).Decode(&doc); err != nil {
		return nil, err
	}
	return userDocumentToModel(&doc), nil
}

// UpdateProfile sets the supplied profile fields.
func (m *MongoDB) UpdateProfile(ctx context.Context, uid string, patch models.ProfilePatch) (*models.User, error) {
	set := bson.M{}
	if patch.DisplayName != nil {
		set["displayName"] = *patch.DisplayName
	}
	if patch.PhotoURL != nil {
		set["photoURL"] = *patch.PhotoURL
	}
	return m.updateUserFields(ctx, uid, set)
}

// UpdateNotificationSettings sets only the supplied notification flags.
func (m *MongoDB) UpdateNotificationSettings(ctx context.Context, uid string, patch models.NotificationSettingsPatch) (*models.User, error) {
	set := bson.M{}
	for field, value := range patch.Fields() {
		set["notificationSettings."+field] = value
	}
	return m.updateUserFields(ctx, uid, set)
}

// UpdateAppearance sets only the supplied appearance flags.
func (m *MongoDB) UpdateAppearance(ctx context.Context, uid string, patch models.AppearanceSettingsPatch) (*models.User, error) {
	set := bson.M{}
	for field, value := range patch.Fields() {
		set["appearance."+field] = value
	}
	return m.updateUserFields(ctx, uid, set)
}

// updateUserFields applies set plus an updatedAt bump to an existing user.
func (m *MongoDB) updateUserFields(ctx context.Context, uid string, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now().UTC()

	var doc UserDocument
	err := m.Users.FindOneAndUpdate(ctx, bson.M{"_id": uid}, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("User")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("update user", err)
	}
	return userDocumentToModel(&doc), nil
}
