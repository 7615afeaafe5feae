package models

import (
	"strings"
	"time"
)

type NotificationSettings struct {
	EmailNotifications  bool `json:"emailNotifications"`
	WeeklyDigest        bool `json:"weeklyDigest"`
	UpvoteNotifications bool `json:"upvoteNotifications"`
}

type AppearanceSettings struct {
	DarkMode               bool `json:"darkMode"`
	CompactView            bool `json:"compactView"`
	CodeSyntaxHighlighting bool `json:"codeSyntaxHighlighting"`
}

// User is a profile keyed by the identity provider's uid.
type User struct {
	UID                  string               `json:"uid"`
	Email                string               `json:"email"`
	DisplayName          string               `json:"displayName"`
	PhotoURL             string               `json:"photoURL"`
	NotificationSettings NotificationSettings `json:"notificationSettings"`
	Appearance           AppearanceSettings   `json:"appearance"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EmailNotifications:  true,
		WeeklyDigest:        true,
		UpvoteNotifications: true,
	}
}

func DefaultAppearanceSettings() AppearanceSettings {
	return AppearanceSettings{
		DarkMode:               false,
		CompactView:            false,
		CodeSyntaxHighlighting: true,
	}
}

// UserUpsert is the identity handed over on sign-in.
type UserUpsert struct {
	UID         string
	Email       string
	DisplayName *string
	PhotoURL    *string
}

// DefaultDisplayName derives a display name from the local part of an email.
func DefaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

type ProfilePatch struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

type NotificationSettingsPatch struct {
	EmailNotifications  *bool `json:"emailNotifications"`
	WeeklyDigest        *bool `json:"weeklyDigest"`
	UpvoteNotifications *bool `json:"upvoteNotifications"`
}

// Fields returns the supplied settings keyed by their document field name.
func (p NotificationSettingsPatch) Fields() map[string]bool {
	fields := make(map[string]bool)
	if p.EmailNotifications != nil {
		fields["emailNotifications"] = *p.EmailNotifications
	}
	if p.WeeklyDigest != nil {
		fields["weeklyDigest"] = *p.WeeklyDigest
	}
	if p.UpvoteNotifications != nil {
		fields["upvoteNotifications"] = *p.UpvoteNotifications
	}
	return fields
}

// Apply merges the supplied settings into s.
func (p NotificationSettingsPatch) Apply(s *NotificationSettings) {
	if p.EmailNotifications != nil {
		s.EmailNotifications = *p.EmailNotifications
	}
	if p.WeeklyDigest != nil {
		s.WeeklyDigest = *p.WeeklyDigest
	}
	if p.UpvoteNotifications != nil {
		s.UpvoteNotifications = *p.UpvoteNotifications
	}
}

type AppearanceSettingsPatch struct {
	DarkMode               *bool `json:"darkMode"`
	CompactView            *bool `json:"compactView"`
	CodeSyntaxHighlighting *bool `json:"codeSyntaxHighlighting"`
}

// Fields returns the supplied settings keyed by their document field name.
func (p AppearanceSettingsPatch) Fields() map[string]bool {
	fields := make(map[string]bool)
	if p.DarkMode != nil {
		fields["darkMode"] = *p.DarkMode
	}
	if p.CompactView != nil {
		fields["compactView"] = *p.CompactView
	}
	if p.CodeSyntaxHighlighting != nil {
		fields["codeSyntaxHighlighting"] = *p.CodeSyntaxHighlighting
	}
	return fields
}

// Apply merges the supplied settings into s.
func (p AppearanceSettingsPatch) Apply(s *AppearanceSettings) {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.CompactView != nil {
		s.CompactView = *p.CompactView
	}
	if p.CodeSyntaxHighlighting != nil {
		s.CodeSyntaxHighlighting = *p.CodeSyntaxHighlighting
	}
}
