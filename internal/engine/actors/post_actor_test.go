package actors

import (
	"context"
	"sync"
	"testing"
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func spawnPostActor(t *testing.T, store database.DBAdapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(store, utils.NewMetricsCollector(), nil, time.Second)
	})
	return system, system.Root.Spawn(props)
}

func request(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	result, err := system.Root.RequestFuture(pid, msg, 5*time.Second).Result()
	require.NoError(t, err)
	return result
}

func TestCreatePostUpsertsNormalizedTags(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnPostActor(t, store)

	result := request(t, system, pid, &CreatePostMsg{
		Title:      "Q1",
		Content:    "How do hooks work?",
		AuthorID:   "u1",
		AuthorName: "Alice",
		Tags:       []string{"React", " hooks ", "react"},
	})
	post, ok := result.(*models.Post)
	require.True(t, ok, "expected *models.Post, got %T", result)
	assert.Equal(t, []string{"react", "hooks"}, post.Tags)
	assert.Equal(t, 0, post.Upvotes)
	assert.Equal(t, 0, post.Views)

	react, err := store.GetTagByName(context.Background(), "react")
	require.NoError(t, err)
	assert.Equal(t, 1, react.Count)
}

func TestCreatePostRequiresTitleAndContent(t *testing.T) {
	system, pid := spawnPostActor(t, database.NewMemoryStore())

	result := request(t, system, pid, &CreatePostMsg{Title: "  ", Content: "body"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestConcurrentUpvotesThroughActor(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnPostActor(t, store)

	post := request(t, system, pid, &CreatePostMsg{Title: "Q1", Content: "body"}).(*models.Post)

	var wg sync.WaitGroup
	for _, user := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := system.Root.RequestFuture(pid, &TogglePostUpvoteMsg{PostID: post.ID, UserID: user}, 5*time.Second).Result()
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	// Toggling twice is a no-op
	request(t, system, pid, &TogglePostUpvoteMsg{PostID: post.ID, UserID: "e"})
	state := request(t, system, pid, &TogglePostUpvoteMsg{PostID: post.ID, UserID: "e"}).(*models.UpvoteState)

	assert.Equal(t, 4, state.Upvotes)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, state.UpvotedBy)
}

func TestUpdateMissingPostLeavesTagsUntouched(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnPostActor(t, store)

	result := request(t, system, pid, &UpdatePostMsg{PostID: "missing", Patch: models.PostPatch{Tags: []string{"go"}}})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrNotFound, appErr.Code)

	tags, err := store.ListTags(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tags)
}

// failingStore fails tag upserts so the actor's error path can be observed.
type failingStore struct {
	*database.MemoryStore
	mock.Mock
}

func (s *failingStore) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	args := s.Called(name)
	return nil, args.Error(0)
}

func TestCreatePostSurfacesStoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore()}
	store.On("UpsertTag", "go").Return(utils.NewDatabaseError("upsert tag", context.DeadlineExceeded))
	system, pid := spawnPostActor(t, store)

	result := request(t, system, pid, &CreatePostMsg{Title: "Q1", Content: "body", Tags: []string{"Go"}})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrDatabase, appErr.Code)
	store.AssertExpectations(t)

	posts, err := store.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestUpdatePostTagFailureLeavesPostUnchanged(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore()}
	store.On("UpsertTag", "go").Return(utils.NewDatabaseError("upsert tag", context.DeadlineExceeded))
	system, pid := spawnPostActor(t, store)

	ctx := context.Background()
	post := models.NewPost("Q1", "body", "u1", "Alice", nil)
	require.NoError(t, store.CreatePost(ctx, post))

	title := "Q1 edited"
	result := request(t, system, pid, &UpdatePostMsg{
		PostID: post.ID,
		Patch:  models.PostPatch{Title: &title, Tags: []string{"Go"}},
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected *utils.AppError, got %T", result)
	assert.Equal(t, utils.ErrDatabase, appErr.Code)
	store.AssertExpectations(t)

	posts, err := store.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Q1", posts[0].Title)
	assert.Empty(t, posts[0].Tags)
}

func TestUpdatePostCountsTagsThenWrites(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnPostActor(t, store)

	post := request(t, system, pid, &CreatePostMsg{Title: "Q1", Content: "body", Tags: []string{"go"}}).(*models.Post)

	result := request(t, system, pid, &UpdatePostMsg{
		PostID: post.ID,
		Patch:  models.PostPatch{Tags: []string{"Go", "mongodb"}},
	})
	updated, ok := result.(*models.Post)
	require.True(t, ok, "expected *models.Post, got %T", result)
	assert.Equal(t, []string{"go", "mongodb"}, updated.Tags)

	goTag, err := store.GetTagByName(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 2, goTag.Count)
}
