// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/google/uuid"
)

// MemoryStore is a DBAdapter held in process memory. A single mutex makes
// every operation atomic, matching the single-document guarantees of the
// MongoDB implementation. Returned values are copies.
type MemoryStore struct {
	mu        sync.Mutex
	postsByID map[string]*models.Post
	tagsByNm  map[string]*models.Tag
	usersByID map[string]*models.User
	postSeq   map[string]int // insertion order, breaks createdAt ties
	nextSeq   int
}

var _ DBAdapter = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		postsByID: make(map[string]*models.Post),
		tagsByNm:  make(map[string]*models.Tag),
		usersByID: make(map[string]*models.User),
		postSeq:   make(map[string]int),
	}
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Tags = copyStrings(p.Tags)
	cp.UpvotedBy = copyStrings(p.UpvotedBy)
	cp.Answers = make([]*models.Answer, 0, len(p.Answers))
	for _, a := range p.Answers {
		answer := *a
		answer.UpvotedBy = copyStrings(a.UpvotedBy)
		cp.Answers = append(cp.Answers, &answer)
	}
	return &cp
}

func copyTag(t *models.Tag) *models.Tag {
	cp := *t
	return &cp
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.postsByID[post.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "Post already exists", nil)
	}
	s.postsByID[post.ID] = copyPost(post.Normalize())
	s.nextSeq++
	s.postSeq[post.ID] = s.nextSeq
	return nil
}

func (s *MemoryStore) GetPostAndIncrementViews(ctx context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.postsByID[id]
	if !exists {
		return nil, utils.NewNotFoundError("Post")
	}
	post.Views++
	return copyPost(post), nil
}

func (s *MemoryStore) ListPosts(ctx context.Context) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]*models.Post, 0, len(s.postsByID))
	for _, post := range s.postsByID {
		posts = append(posts, copyPost(post))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return s.postSeq[posts[i].ID] > s.postSeq[posts[j].ID]
	})
	return posts, nil
}

func (s *MemoryStore) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.postsByID[id]
	if !exists {
		return nil, utils.NewNotFoundError("Post")
	}
	if patch.Title != nil {
		post.Title = *patch.Title
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.AuthorName != nil {
		post.AuthorName = *patch.AuthorName
	}
	if patch.Tags != nil {
		post.Tags = copyStrings(patch.Tags)
	}
	return copyPost(post), nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.postsByID[id]; !exists {
		return utils.NewNotFoundError("Post")
	}
	delete(s.postsByID, id)
	delete(s.postSeq, id)
	return nil
}

func (s *MemoryStore) PostExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.postsByID[id]
	return exists, nil
}

func (s *MemoryStore) AddAnswer(ctx context.Context, postID string, answer *models.Answer) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.postsByID[postID]
	if !exists {
		return nil, utils.NewNotFoundError("Post")
	}
	added := *answer
	added.UpvotedBy = copyStrings(answer.UpvotedBy)
	post.Answers = append(post.Answers, &added)
	return copyPost(post), nil
}

func (s *MemoryStore) TogglePostUpvote(ctx context.Context, postID, userID string) (*models.UpvoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.postsByID[postID]
	if !exists {
		return nil, utils.NewNotFoundError("Post")
	}
	post.UpvotedBy = models.ToggleUpvote(post.UpvotedBy, userID)
	post.Upvotes = len(post.UpvotedBy)
	return voteState(post.Upvotes, copyStrings(post.UpvotedBy)), nil
}

func (s *MemoryStore) ToggleAnswerUpvote(ctx context.Context, postID, answerID, userID string) (*models.UpvoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.postsByID[postID]
	if !exists {
		return nil, utils.NewNotFoundError("Post or answer")
	}
	answer := post.FindAnswer(answerID)
	if answer == nil {
		return nil, utils.NewNotFoundError("Post or answer")
	}
	answer.UpvotedBy = models.ToggleUpvote(answer.UpvotedBy, userID)
	answer.Upvotes = len(answer.UpvotedBy)
	return voteState(answer.Upvotes, copyStrings(answer.UpvotedBy)), nil
}

func (s *MemoryStore) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	name = models.NormalizeTagName(name)
	if name == "" {
		return nil, utils.NewValidationError("tag name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tag, exists := s.tagsByNm[name]
	if !exists {
		tag = &models.Tag{ID: uuid.New().String(), Name: name}
		s.tagsByNm[name] = tag
	}
	tag.Count++
	return copyTag(tag), nil
}

func (s *MemoryStore) ListTags(ctx context.Context) ([]*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]*models.Tag, 0, len(s.tagsByNm))
	for _, tag := range s.tagsByNm {
		tags = append(tags, copyTag(tag))
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

func (s *MemoryStore) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, exists := s.tagsByNm[models.NormalizeTagName(name)]
	if !exists {
		return nil, utils.NewNotFoundError("Tag")
	}
	return copyTag(tag), nil
}

func (s *MemoryStore) DeleteTag(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, tag := range s.tagsByNm {
		if tag.ID == id {
			delete(s.tagsByNm, name)
			return nil
		}
	}
	return utils.NewNotFoundError("Tag")
}

func (s *MemoryStore) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[uid]
	if !exists {
		return nil, utils.NewNotFoundError("User")
	}
	return copyUser(user), nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, in models.UserUpsert) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, other := range s.usersByID {
		if uid != in.UID && other.Email == in.Email {
			return nil, utils.NewAppError(utils.ErrDuplicate, "Email already in use", nil)
		}
	}

	now := time.Now().UTC()
	user, exists := s.usersByID[in.UID]
	if !exists {
		user = &models.User{
			UID:                  in.UID,
			DisplayName:          models.DefaultDisplayName(in.Email),
			NotificationSettings: models.DefaultNotificationSettings(),
			Appearance:           models.DefaultAppearanceSettings(),
			CreatedAt:            now,
		}
		s.usersByID[in.UID] = user
	}
	user.Email = in.Email
	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.PhotoURL != nil {
		user.PhotoURL = *in.PhotoURL
	}
	user.UpdatedAt = now
	return copyUser(user), nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, uid string, patch models.ProfilePatch) (*models.User, error) {
	return s.updateUser(uid, func(user *models.User) {
		if patch.DisplayName != nil {
			user.DisplayName = *patch.DisplayName
		}
		if patch.PhotoURL != nil {
			user.PhotoURL = *patch.PhotoURL
		}
	})
}

func (s *MemoryStore) UpdateNotificationSettings(ctx context.Context, uid string, patch models.NotificationSettingsPatch) (*models.User, error) {
	return s.updateUser(uid, func(user *models.User) {
		patch.Apply(&user.NotificationSettings)
	})
}

func (s *MemoryStore) UpdateAppearance(ctx context.Context, uid string, patch models.AppearanceSettingsPatch) (*models.User, error) {
	return s.updateUser(uid, func(user *models.User) {
		patch.Apply(&user.Appearance)
	})
}

func (s *MemoryStore) updateUser(uid string, apply func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[uid]
	if !exists {
		return nil, utils.NewNotFoundError("User")
	}
	apply(user)
	user.UpdatedAt = time.Now().UTC()
	return copyUser(user), nil
}
