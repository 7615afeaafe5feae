package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"gator-overflow/internal/models"

	"go.uber.org/zap"
)

var errNoPosts = errors.New("no posts yet")

// SimulateActivities starts question traffic at once and holds answers,
// votes and reads back until WarmupPosts questions exist.
func (s *EnhancedSimulator) SimulateActivities(ctx context.Context) error {
	postsAvailable := make(chan struct{})
	var signalOnce sync.Once
	signal := func() { signalOnce.Do(func() { close(postsAvailable) }) }
	if s.config.WarmupPosts <= 0 {
		signal()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runActivity(ctx, "post", s.config.PostFrequency, func(user *SimulatedUser) {
			if s.createPost(user) >= s.config.WarmupPosts {
				signal()
			}
		})
	}()

	after := func(name string, frequency float64, action func(*SimulatedUser)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case <-postsAvailable:
				s.logger.Info("Starting activity after warmup", zap.String("activity", name))
				s.runActivity(ctx, name, frequency, action)
			}
		}()
	}
	after("answer", s.config.AnswerFrequency, s.answerPost)
	after("vote", s.config.VoteFrequency, s.vote)
	after("view", s.config.ViewFrequency, s.viewPost)

	wg.Wait()
	return nil
}

// runActivity offers every connected user to a worker pool on each tick.
// A worker acts for the user with probability frequency/hour scaled to the
// tick length.
func (s *EnhancedSimulator) runActivity(ctx context.Context, name string, frequency float64, action func(*SimulatedUser)) {
	if frequency <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	chance := frequency / 3600.0 * s.config.TickInterval.Seconds()
	jobs := make(chan *SimulatedUser, maxInt(s.config.NumUsers, 1))

	var wg sync.WaitGroup
	for i := 0; i < s.config.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				if rand.Float64() < chance {
					action(user)
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			s.logger.Debug("Activity stopped", zap.String("activity", name))
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				if !user.IsConnected {
					continue
				}
				select {
				case jobs <- user:
				default: // don't block if workers are behind
				}
			}
			s.mu.RUnlock()
		}
	}
}

// createPost asks a question tagged with the user's interests and returns the
// running question count.
func (s *EnhancedSimulator) createPost(user *SimulatedUser) int {
	data := map[string]interface{}{
		"title":      fmt.Sprintf("Question from %s at %d", user.DisplayName, time.Now().UnixNano()),
		"content":    fmt.Sprintf("How do I get %v working together? (%s)", user.Interests, time.Now().Format(time.RFC3339)),
		"authorId":   user.UID,
		"authorName": user.DisplayName,
		"tags":       user.Interests,
	}

	resp, err := s.makeRequest(http.MethodPost, "/api/posts", data, user)
	if err != nil {
		s.logger.Debug("Failed to create post", zap.String("user", user.DisplayName), zap.Error(err))
		return s.postCount()
	}

	var post models.Post
	if err := json.Unmarshal(resp, &post); err != nil || post.ID == "" {
		s.logger.Debug("Failed to parse post response", zap.Error(err))
		return s.postCount()
	}

	s.mu.Lock()
	s.posts = append(s.posts, &postRef{ID: post.ID})
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPosts++
	count := s.stats.TotalPosts
	s.stats.mu.Unlock()

	s.logger.Debug("Created post", zap.String("user", user.DisplayName), zap.String("postId", post.ID), zap.Int("total", count))
	return count
}

func (s *EnhancedSimulator) postCount() int {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()
	return s.stats.TotalPosts
}

func (s *EnhancedSimulator) answerPost(user *SimulatedUser) {
	ref, err := s.getRandomPost()
	if err != nil {
		return
	}

	content := fmt.Sprintf("Answer from %s at %d", user.DisplayName, time.Now().UnixNano())
	data := map[string]interface{}{
		"content":    content,
		"authorId":   user.UID,
		"authorName": user.DisplayName,
	}
	resp, err := s.makeRequest(http.MethodPost, "/api/posts/"+ref.ID+"/answers", data, user)
	if err != nil {
		s.logger.Debug("Failed to answer post", zap.String("postId", ref.ID), zap.Error(err))
		return
	}

	var post models.Post
	if err := json.Unmarshal(resp, &post); err != nil {
		s.logger.Debug("Failed to parse answer response", zap.Error(err))
		return
	}

	// Concurrent answers may land in the same response, so match on content
	for _, answer := range post.Answers {
		if answer.AuthorID == user.UID && answer.Content == content {
			s.mu.Lock()
			ref.AnswerIDs = append(ref.AnswerIDs, answer.ID)
			s.mu.Unlock()
			break
		}
	}

	s.stats.mu.Lock()
	s.stats.TotalAnswers++
	s.stats.mu.Unlock()
}

// vote toggles the user's upvote on a random post, or on one of its answers
// half the time when it has any.
func (s *EnhancedSimulator) vote(user *SimulatedUser) {
	ref, err := s.getRandomPost()
	if err != nil {
		return
	}

	endpoint := "/api/posts/" + ref.ID + "/upvote"
	s.mu.RLock()
	if len(ref.AnswerIDs) > 0 && rand.Intn(2) == 0 {
		answerID := ref.AnswerIDs[rand.Intn(len(ref.AnswerIDs))]
		endpoint = "/api/posts/" + ref.ID + "/answers/" + answerID + "/upvote"
	}
	s.mu.RUnlock()

	resp, err := s.makeRequest(http.MethodPost, endpoint, map[string]interface{}{"userId": user.UID}, user)
	if err != nil {
		s.logger.Debug("Failed to toggle upvote", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}

	var state models.UpvoteState
	if err := json.Unmarshal(resp, &state); err != nil {
		s.logger.Debug("Failed to parse vote response", zap.Error(err))
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalVotes++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) viewPost(user *SimulatedUser) {
	ref, err := s.getRandomPost()
	if err != nil {
		return
	}
	if _, err := s.makeRequest(http.MethodGet, "/api/posts/"+ref.ID, nil, user); err != nil {
		s.logger.Debug("Failed to read post", zap.String("postId", ref.ID), zap.Error(err))
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalViews++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) getRandomPost() (*postRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.posts) == 0 {
		return nil, errNoPosts
	}
	return s.posts[rand.Intn(len(s.posts))], nil
}
