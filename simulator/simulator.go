package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"gator-overflow/internal/middleware"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SimConfig struct {
	NumUsers        int
	NumTags         int
	TagsPerPost     int
	SimulationTime  time.Duration
	PostFrequency   float64 // questions per user per hour
	AnswerFrequency float64 // answers per user per hour
	VoteFrequency   float64 // upvote toggles per user per hour
	ViewFrequency   float64 // post reads per user per hour
	DisconnectRate  float64
	ReconnectRate   float64
	ZipfS           float64
	TickInterval    time.Duration
	WarmupPosts     int // posts needed before answers, votes and reads start
	NumWorkers      int
	EngineURL       string
	JWTSecret       string // signs per-user tokens when the engine checks identity
	JWTIssuer       string
}

// DefaultSimConfig returns a small local run against localhost:8080.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumUsers:        10,
		NumTags:         8,
		TagsPerPost:     3,
		SimulationTime:  10 * time.Minute,
		PostFrequency:   100.0,
		AnswerFrequency: 60.0,
		VoteFrequency:   100.0,
		ViewFrequency:   300.0,
		DisconnectRate:  0.01,
		ReconnectRate:   0.05,
		ZipfS:           1.07,
		TickInterval:    500 * time.Millisecond,
		WarmupPosts:     10,
		NumWorkers:      5,
		EngineURL:       "http://localhost:8080",
	}
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	AverageLatency  time.Duration
	ActiveUsers     int
	TotalPosts      int
	TotalAnswers    int
	TotalVotes      int
	TotalViews      int
}

// SimulatedUser is one synthetic account driving traffic
type SimulatedUser struct {
	UID         string
	DisplayName string
	Email       string
	IsConnected bool
	Interests   []string // tags this user tends to ask about
	token       string
}

// postRef tracks what the simulator knows about a created post
type postRef struct {
	ID        string
	AnswerIDs []string
}

type EnhancedSimulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	tags   []string
	posts  []*postRef
	client *http.Client
	auth   *middleware.Authenticator
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewEnhancedSimulator(config SimConfig, logger *zap.Logger) *EnhancedSimulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = 5
	}
	if config.TagsPerPost <= 0 {
		config.TagsPerPost = 1
	}
	return &EnhancedSimulator{
		config: config,
		stats: &SimulationStats{
			StartTime: time.Now(),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		auth:   middleware.NewAuthenticator(config.JWTSecret, config.JWTIssuer, logger),
		logger: logger,
	}
}

func (s *EnhancedSimulator) Run(ctx context.Context) error {
	s.logger.Info("Starting simulation")

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.SimulateActivities(ctx); err != nil {
			s.logger.Error("Activities simulation error", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateConnectivity(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *EnhancedSimulator) initialize(ctx context.Context) error {
	// Phase 1: user base
	s.logger.Info("Creating users", zap.Int("count", s.config.NumUsers))
	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("failed to create initial users: %w", err)
	}
	if len(s.users) == 0 {
		return fmt.Errorf("no users could be created")
	}

	// Phase 2: tag vocabulary
	s.logger.Info("Seeding tags", zap.Int("count", s.config.NumTags))
	if err := s.seedTags(ctx); err != nil {
		return fmt.Errorf("failed to seed tags: %w", err)
	}

	// Phase 3: Zipf-distributed interests so a few tags dominate
	s.assignInterests()

	s.stats.mu.Lock()
	s.stats.ActiveUsers = len(s.users)
	s.stats.mu.Unlock()

	s.logger.Info("Initialization completed", zap.Int("users", len(s.users)), zap.Int("tags", len(s.tags)))
	return nil
}

func (s *EnhancedSimulator) createInitialUsers(ctx context.Context) error {
	numWorkers := s.config.NumWorkers
	userJobs := make(chan int, numWorkers)
	results := make(chan *SimulatedUser, numWorkers)

	var wg sync.WaitGroup

	// Shared by all workers, 20 requests per second
	rateLimiter := time.NewTicker(50 * time.Millisecond)
	defer rateLimiter.Stop()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for userNum := range userJobs {
				select {
				case <-ctx.Done():
					return
				case <-rateLimiter.C:
				}

				user := &SimulatedUser{
					UID:         uuid.NewString(),
					DisplayName: fmt.Sprintf("user_%d", userNum),
					Email:       fmt.Sprintf("user_%d@sim.gatoroverflow.dev", userNum),
					IsConnected: true,
				}

				var err error
				for retries := 0; retries < 3; retries++ {
					if err = s.registerUser(user); err == nil {
						results <- user
						break
					}
					backoff := time.Duration(math.Pow(2, float64(retries))) * 100 * time.Millisecond
					s.logger.Warn("Retrying user registration",
						zap.Int("worker", workerID),
						zap.String("user", user.DisplayName),
						zap.Duration("backoff", backoff),
						zap.Error(err))
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
				}
				if err != nil {
					s.logger.Error("Failed to register user", zap.String("user", user.DisplayName), zap.Error(err))
				}
			}
		}(i)
	}

	go func() {
		defer close(userJobs)
		for i := 0; i < s.config.NumUsers; i++ {
			select {
			case <-ctx.Done():
				return
			case userJobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	users := make([]*SimulatedUser, 0, s.config.NumUsers)
	for user := range results {
		users = append(users, user)
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()

	s.logger.Info("Users created", zap.Int("count", len(users)))
	return ctx.Err()
}

// registerUser performs the sign-in upsert and, when identity checks are
// on, mints the token later requests act under.
func (s *EnhancedSimulator) registerUser(user *SimulatedUser) error {
	if s.auth.Enabled() {
		token, err := s.auth.GenerateToken(user.UID, user.Email)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		user.token = token
	}

	data := map[string]interface{}{
		"uid":         user.UID,
		"email":       user.Email,
		"displayName": user.DisplayName,
	}
	resp, err := s.makeRequest(http.MethodPost, "/api/users", data, user)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	var result struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to parse registration response: %w", err)
	}
	if result.UID != user.UID {
		return fmt.Errorf("registration returned uid %q, want %q", result.UID, user.UID)
	}
	return nil
}

var tagThemes = []string{
	"go", "react", "mongodb", "docker", "kubernetes", "python", "rust",
	"typescript", "css", "graphql", "redis", "postgres", "linux", "git",
}

// seedTags registers the tag vocabulary in one batch so later posts only
// bump counts.
func (s *EnhancedSimulator) seedTags(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := s.config.NumTags
	if n <= 0 {
		n = 1
	}
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := tagThemes[i%len(tagThemes)]
		if i >= len(tagThemes) {
			name = fmt.Sprintf("%s%d", name, i/len(tagThemes))
		}
		tags = append(tags, name)
	}

	s.mu.RLock()
	seeder := s.users[0]
	s.mu.RUnlock()

	if _, err := s.makeRequest(http.MethodPost, "/api/tags", map[string]interface{}{"tags": tags}, seeder); err != nil {
		return err
	}

	s.mu.Lock()
	s.tags = tags
	s.mu.Unlock()
	return nil
}

func (s *EnhancedSimulator) assignInterests() {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := s.config.TagsPerPost
	if want > len(s.tags) {
		want = len(s.tags)
	}
	for _, user := range s.users {
		seen := make(map[string]bool, want)
		interests := make([]string, 0, want)
		for attempts := 0; len(interests) < want && attempts < want*10; attempts++ {
			tag := s.tags[s.getZipfNumber(len(s.tags))]
			if !seen[tag] {
				seen[tag] = true
				interests = append(interests, tag)
			}
		}
		user.Interests = interests
	}
}

// getZipfNumber returns an index in [0, max) skewed towards 0.
func (s *EnhancedSimulator) getZipfNumber(max int) int {
	if max <= 1 || s.config.ZipfS <= 1 {
		return rand.Intn(maxInt(max, 1))
	}
	zipf := rand.NewZipf(rand.New(rand.NewSource(rand.Int63())), s.config.ZipfS, 1, uint64(max-1))
	return int(zipf.Uint64())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// makeRequest sends a JSON request, acting as user when one is given.
func (s *EnhancedSimulator) makeRequest(method, endpoint string, data interface{}, user *SimulatedUser) ([]byte, error) {
	var body []byte
	var err error

	if data != nil {
		body, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, s.config.EngineURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if user != nil && user.token != "" {
		req.Header.Set("Authorization", "Bearer "+user.token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err = fmt.Errorf("%s %s failed with status: %d", method, endpoint, resp.StatusCode)
		s.recordRequestMetrics(start, err)
		return nil, err
	}

	payload, err := io.ReadAll(resp.Body)
	s.recordRequestMetrics(start, err)
	return payload, err
}

func (s *EnhancedSimulator) simulateConnectivity(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active := 0
			s.mu.Lock()
			for _, user := range s.users {
				if user.IsConnected {
					if rand.Float64() < s.config.DisconnectRate {
						user.IsConnected = false
					}
				} else if rand.Float64() < s.config.ReconnectRate {
					user.IsConnected = true
				}
				if user.IsConnected {
					active++
				}
			}
			s.mu.Unlock()

			s.stats.mu.Lock()
			s.stats.ActiveUsers = active
			s.stats.mu.Unlock()
		}
	}
}

func (s *EnhancedSimulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++

	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

func (s *EnhancedSimulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.logger.Info("Simulation metrics",
				zap.Duration("elapsed", time.Since(s.stats.StartTime)),
				zap.Float64("requestsPerSecond", m.RequestsPerSecond),
				zap.Float64("successRate", m.SuccessRate),
				zap.Duration("averageLatency", m.AverageLatency),
				zap.Int("activeUsers", m.ActiveUsers),
				zap.Int("totalUsers", m.TotalUsers),
				zap.Int("posts", m.TotalPosts),
				zap.Int("answers", m.TotalAnswers),
				zap.Int("votes", m.TotalVotes),
				zap.Int("views", m.TotalViews),
				zap.Int("failedRequests", m.ErrorCount))
		}
	}
}

type SimulationMetrics struct {
	TotalUsers        int
	ActiveUsers       int
	TotalPosts        int
	TotalAnswers      int
	TotalVotes        int
	TotalViews        int
	AverageLatency    time.Duration
	ErrorCount        int
	SuccessRate       float64
	RequestsPerSecond float64
}

func (s *EnhancedSimulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	totalUsers := len(s.users)
	s.mu.RUnlock()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	elapsed := time.Since(s.stats.StartTime)
	successRate := 0.0
	if s.stats.TotalRequests > 0 {
		successRate = float64(s.stats.SuccessRequests) / float64(s.stats.TotalRequests) * 100
	}

	return SimulationMetrics{
		TotalUsers:        totalUsers,
		ActiveUsers:       s.stats.ActiveUsers,
		TotalPosts:        s.stats.TotalPosts,
		TotalAnswers:      s.stats.TotalAnswers,
		TotalVotes:        s.stats.TotalVotes,
		TotalViews:        s.stats.TotalViews,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		SuccessRate:       successRate,
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
	}
}
