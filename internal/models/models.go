// Package models holds the Q&A domain types shared by the store, the actors
// and the HTTP handlers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// NewPost builds a fresh question with zeroed counters. Tags must already be
// normalized.
func NewPost(title, content, authorID, authorName string, tags []string) *Post {
	post := &Post{
		ID:         uuid.New().String(),
		Title:      title,
		Content:    content,
		AuthorID:   authorID,
		AuthorName: authorName,
		CreatedAt:  time.Now().UTC(),
		Tags:       tags,
		Upvotes:    0,
		Views:      0,
	}
	return post.Normalize()
}

// NewAnswer builds an answer ready to be appended to a post.
func NewAnswer(content, authorID, authorName string) *Answer {
	return &Answer{
		ID:         uuid.New().String(),
		Content:    content,
		AuthorID:   authorID,
		AuthorName: authorName,
		CreatedAt:  time.Now().UTC(),
		Upvotes:    0,
		UpvotedBy:  []string{},
	}
}
