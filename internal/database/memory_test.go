package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreViewsIncrementPerFetch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := models.NewPost("Q1", "body", "u1", "Alice", nil)
	require.NoError(t, store.CreatePost(ctx, post))

	first, err := store.GetPostAndIncrementViews(ctx, post.ID)
	require.NoError(t, err)
	second, err := store.GetPostAndIncrementViews(ctx, post.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Views)
	assert.Equal(t, 2, second.Views)

	_, err = store.GetPostAndIncrementViews(ctx, "missing")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestMemoryStoreListPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	older := models.NewPost("old", "body", "u1", "Alice", nil)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewPost("new", "body", "u1", "Alice", nil)
	require.NoError(t, store.CreatePost(ctx, older))
	require.NoError(t, store.CreatePost(ctx, newer))

	posts, err := store.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Title)
	assert.Equal(t, "old", posts[1].Title)
}

func TestMemoryStoreConcurrentTogglesKeepCountConsistent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := models.NewPost("Q1", "body", "u1", "Alice", nil)
	require.NoError(t, store.CreatePost(ctx, post))

	users := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := store.TogglePostUpvote(ctx, post.ID, user)
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	got, err := store.GetPostAndIncrementViews(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, len(users), got.Upvotes)
	assert.ElementsMatch(t, users, got.UpvotedBy)
}

func TestMemoryStoreAnswerUpvoteRequiresAnswer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := models.NewPost("Q1", "body", "u1", "Alice", nil)
	require.NoError(t, store.CreatePost(ctx, post))

	answer := models.NewAnswer("try this", "u2", "Bob")
	_, err := store.AddAnswer(ctx, post.ID, answer)
	require.NoError(t, err)

	state, err := store.ToggleAnswerUpvote(ctx, post.ID, answer.ID, "u3")
	require.NoError(t, err)
	assert.Equal(t, &models.UpvoteState{Upvotes: 1, UpvotedBy: []string{"u3"}}, state)

	_, err = store.ToggleAnswerUpvote(ctx, post.ID, "nope", "u3")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := models.NewPost("Q1", "body", "u1", "Alice", []string{"go"})
	require.NoError(t, store.CreatePost(ctx, post))

	got, err := store.GetPostAndIncrementViews(ctx, post.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := store.GetPostAndIncrementViews(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, again.Tags)
}

func TestMemoryStoreTagCountsAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, name := range []string{"React", "go", " react ", "css"} {
		_, err := store.UpsertTag(ctx, name)
		require.NoError(t, err)
	}

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "react", tags[0].Name)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, "css", tags[1].Name)
	assert.Equal(t, "go", tags[2].Name)

	tag, err := store.GetTagByName(ctx, "REACT")
	require.NoError(t, err)
	assert.Equal(t, tags[0].ID, tag.ID)

	require.NoError(t, store.DeleteTag(ctx, tag.ID))
	assert.True(t, utils.IsErrorCode(store.DeleteTag(ctx, tag.ID), utils.ErrNotFound))
}

func TestMemoryStoreUserUpsertAndSettings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user, err := store.UpsertUser(ctx, models.UserUpsert{UID: "uid-1", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.DisplayName)
	assert.Equal(t, "", user.PhotoURL)
	assert.Equal(t, models.DefaultNotificationSettings(), user.NotificationSettings)
	assert.Equal(t, models.DefaultAppearanceSettings(), user.Appearance)

	name := "Alice A."
	again, err := store.UpsertUser(ctx, models.UserUpsert{UID: "uid-1", Email: "alice@example.com", DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", again.DisplayName)
	assert.Equal(t, user.CreatedAt, again.CreatedAt)

	off := false
	updated, err := store.UpdateNotificationSettings(ctx, "uid-1", models.NotificationSettingsPatch{WeeklyDigest: &off})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSettings{EmailNotifications: true, WeeklyDigest: false, UpvoteNotifications: true},
		updated.NotificationSettings)

	_, err = store.UpsertUser(ctx, models.UserUpsert{UID: "uid-2", Email: "alice@example.com"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	_, err = store.UpdateProfile(ctx, "ghost", models.ProfilePatch{DisplayName: &name})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}
