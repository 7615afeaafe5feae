package models

import "time"

// Post is a question with its embedded answers.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	Tags       []string  `json:"tags"`
	Upvotes    int       `json:"upvotes"`
	UpvotedBy  []string  `json:"upvotedBy"` // user IDs, len(UpvotedBy) == Upvotes
	Views      int       `json:"views"`
	Answers    []*Answer `json:"answers"`
}

// Answer is owned by exactly one Post and only addressable through it.
type Answer struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	Upvotes    int       `json:"upvotes"`
	UpvotedBy  []string  `json:"upvotedBy"`
}

// PostPatch carries the fields of a partial post update. Nil means untouched.
type PostPatch struct {
	Title      *string
	Content    *string
	AuthorName *string
	Tags       []string // nil means untouched, empty means clear
}

// IsEmpty reports whether the patch modifies nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.AuthorName == nil && p.Tags == nil
}

// Normalize fills nil slices so the post always serializes arrays as [].
func (p *Post) Normalize() *Post {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.UpvotedBy == nil {
		p.UpvotedBy = []string{}
	}
	if p.Answers == nil {
		p.Answers = []*Answer{}
	}
	for _, answer := range p.Answers {
		if answer.UpvotedBy == nil {
			answer.UpvotedBy = []string{}
		}
	}
	return p
}

// FindAnswer returns the embedded answer with the given ID, or nil.
func (p *Post) FindAnswer(answerID string) *Answer {
	for _, answer := range p.Answers {
		if answer.ID == answerID {
			return answer
		}
	}
	return nil
}
