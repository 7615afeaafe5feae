package database

import (
	"context"
	"testing"
	"time"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func newMockDB(mt *mtest.T) *MongoDB {
	return NewMongoDBFromClient(mt.Client, "gator_overflow_test", zap.NewNop())
}

func findAndModifyResponse(value interface{}) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: value})
}

// sentCommand returns the next command the mock deployment received.
func sentCommand(mt *mtest.T) bson.Raw {
	mt.Helper()
	started := mt.GetStartedEvent()
	require.NotNil(mt, started, "no command was sent")
	return started.Command
}

func lookupString(mt *mtest.T, cmd bson.Raw, path ...string) string {
	mt.Helper()
	value, err := cmd.LookupErr(path...)
	require.NoError(mt, err, "missing %v in %s", path, cmd)
	str, ok := value.StringValueOK()
	require.True(mt, ok, "%v is not a string in %s", path, cmd)
	return str
}

func lookupInt(mt *mtest.T, cmd bson.Raw, path ...string) int64 {
	mt.Helper()
	value, err := cmd.LookupErr(path...)
	require.NoError(mt, err, "missing %v in %s", path, cmd)
	return value.AsInt64()
}

func TestMongoPostRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get post returns incremented views", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(PostDocument{
			ID:        "p1",
			Title:     "Q1",
			Content:   "body",
			CreatedAt: time.Now().UTC(),
			Views:     1,
		}))

		post, err := db.GetPostAndIncrementViews(context.Background(), "p1")
		require.NoError(mt, err)
		assert.Equal(mt, 1, post.Views)

		cmd := sentCommand(mt)
		assert.Equal(mt, "posts", lookupString(mt, cmd, "findAndModify"))
		assert.Equal(mt, "p1", lookupString(mt, cmd, "query", "_id"))
		assert.Equal(mt, int64(1), lookupInt(mt, cmd, "update", "$inc", "views"))
		assert.True(mt, cmd.Lookup("new").Boolean())
		assert.Equal(mt, []string{}, post.Tags)
		assert.Equal(mt, []string{}, post.UpvotedBy)
		assert.NotNil(mt, post.Answers)
	})

	mt.Run("get missing post is not found", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(nil))

		_, err := db.GetPostAndIncrementViews(context.Background(), "missing")
		assert.True(mt, utils.IsErrorCode(err, utils.ErrNotFound))
	})

	mt.Run("list posts decodes cursor", func(mt *mtest.T) {
		db := newMockDB(mt)
		ns := "gator_overflow_test.posts"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p2"}, {Key: "title", Value: "newer"}}),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
				bson.D{{Key: "_id", Value: "p1"}, {Key: "title", Value: "older"}}),
		)

		posts, err := db.ListPosts(context.Background())
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, "p2", posts[0].ID)
		assert.Equal(mt, "p1", posts[1].ID)
	})

	mt.Run("toggle upvote returns server state", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "upvotes", Value: 2},
			{Key: "upvotedBy", Value: bson.A{"u1", "u2"}},
		}))

		state, err := db.TogglePostUpvote(context.Background(), "p1", "u2")
		require.NoError(mt, err)
		assert.Equal(mt, &models.UpvoteState{Upvotes: 2, UpvotedBy: []string{"u1", "u2"}}, state)

		// One pipeline update: toggle membership, then recount from the array
		cmd := sentCommand(mt)
		assert.Equal(mt, "p1", lookupString(mt, cmd, "query", "_id"))
		stages, err := cmd.Lookup("update").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, stages, 2)

		toggle := []string{"update", "0", "$set", "upvotedBy", "$cond"}
		assert.Equal(mt, "u2", lookupString(mt, cmd, append(toggle, "0", "$in", "0", "$literal")...))
		assert.Equal(mt, "$upvotedBy", lookupString(mt, cmd, append(toggle, "0", "$in", "1", "$ifNull", "0")...))
		assert.Equal(mt, "u2", lookupString(mt, cmd, append(toggle, "1", "$filter", "cond", "$ne", "1", "$literal")...))
		assert.Equal(mt, "u2", lookupString(mt, cmd, append(toggle, "2", "$concatArrays", "1", "0", "$literal")...))
		assert.Equal(mt, "$upvotedBy", lookupString(mt, cmd, "update", "1", "$set", "upvotes", "$size"))
	})

	mt.Run("toggle answer upvote picks the answer", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "answers", Value: bson.A{
				bson.D{{Key: "_id", Value: "a1"}, {Key: "upvotes", Value: 0}, {Key: "upvotedBy", Value: bson.A{}}},
				bson.D{{Key: "_id", Value: "a2"}, {Key: "upvotes", Value: 1}, {Key: "upvotedBy", Value: bson.A{"u9"}}},
			}},
		}))

		state, err := db.ToggleAnswerUpvote(context.Background(), "p1", "a2", "u9")
		require.NoError(mt, err)
		assert.Equal(mt, 1, state.Upvotes)
		assert.Equal(mt, []string{"u9"}, state.UpvotedBy)

		cmd := sentCommand(mt)
		assert.Equal(mt, "p1", lookupString(mt, cmd, "query", "_id"))
		assert.Equal(mt, "a2", lookupString(mt, cmd, "query", "answers._id"))

		first := []string{"update", "0", "$set", "answers", "$map", "in", "$cond"}
		assert.Equal(mt, "a2", lookupString(mt, cmd, append(first, "0", "$eq", "1", "$literal")...))
		assert.Equal(mt, "$$answer", lookupString(mt, cmd, append(first, "2")...))
		assert.Equal(mt, "u9", lookupString(mt, cmd,
			append(first, "1", "$mergeObjects", "1", "upvotedBy", "$cond", "0", "$in", "0", "$literal")...))

		second := []string{"update", "1", "$set", "answers", "$map", "in", "$cond"}
		assert.Equal(mt, "a2", lookupString(mt, cmd, append(second, "0", "$eq", "1", "$literal")...))
		assert.Equal(mt, "$$answer.upvotedBy", lookupString(mt, cmd,
			append(second, "1", "$mergeObjects", "1", "upvotes", "$size")...))
	})

	mt.Run("delete missing post is not found", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := db.DeletePost(context.Background(), "missing")
		assert.True(mt, utils.IsErrorCode(err, utils.ErrNotFound))
	})
}

func TestMongoTagRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert retries once after duplicate key", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Name:    "DuplicateKey",
				Message: "E11000 duplicate key error collection: tags index: tags_name_unique",
			}),
			findAndModifyResponse(TagDocument{ID: "t1", Name: "react", Count: 2}),
		)

		tag, err := db.UpsertTag(context.Background(), " React ")
		require.NoError(mt, err)
		assert.Equal(mt, &models.Tag{ID: "t1", Name: "react", Count: 2}, tag)

		for attempt := 0; attempt < 2; attempt++ {
			cmd := sentCommand(mt)
			assert.Equal(mt, "tags", lookupString(mt, cmd, "findAndModify"))
			assert.Equal(mt, "react", lookupString(mt, cmd, "query", "name"))
			assert.Equal(mt, int64(1), lookupInt(mt, cmd, "update", "$inc", "count"))
			assert.NotEmpty(mt, lookupString(mt, cmd, "update", "$setOnInsert", "_id"))
			assert.True(mt, cmd.Lookup("upsert").Boolean())
			assert.True(mt, cmd.Lookup("new").Boolean())
		}
	})

	mt.Run("blank tag name is rejected", func(mt *mtest.T) {
		db := newMockDB(mt)

		_, err := db.UpsertTag(context.Background(), "   ")
		assert.True(mt, utils.IsErrorCode(err, utils.ErrInvalidInput))
	})

	mt.Run("get missing tag is not found", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "gator_overflow_test.tags", mtest.FirstBatch))

		_, err := db.GetTagByName(context.Background(), "nope")
		assert.True(mt, utils.IsErrorCode(err, utils.ErrNotFound))
	})
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert decodes settings", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(UserDocument{
			UID:         "uid-1",
			Email:       "alice@example.com",
			DisplayName: "alice",
			NotificationSettings: NotificationSettingsDocument{
				EmailNotifications: true, WeeklyDigest: true, UpvoteNotifications: true,
			},
			Appearance: AppearanceDocument{CodeSyntaxHighlighting: true},
		}))

		user, err := db.UpsertUser(context.Background(), models.UserUpsert{UID: "uid-1", Email: "alice@example.com"})
		require.NoError(mt, err)
		assert.Equal(mt, "alice", user.DisplayName)
		assert.Equal(mt, models.DefaultNotificationSettings(), user.NotificationSettings)
		assert.Equal(mt, models.DefaultAppearanceSettings(), user.Appearance)
	})

	mt.Run("concurrent first sign-in retries on the id race", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Name:    "DuplicateKey",
				Message: "E11000 duplicate key error collection: users index: _id_",
			}),
			findAndModifyResponse(UserDocument{UID: "uid-1", Email: "alice@example.com", DisplayName: "alice"}),
		)

		user, err := db.UpsertUser(context.Background(), models.UserUpsert{UID: "uid-1", Email: "alice@example.com"})
		require.NoError(mt, err)
		assert.Equal(mt, "uid-1", user.UID)

		for attempt := 0; attempt < 2; attempt++ {
			cmd := sentCommand(mt)
			assert.Equal(mt, "uid-1", lookupString(mt, cmd, "query", "_id"))
			assert.True(mt, cmd.Lookup("upsert").Boolean())
		}
	})

	mt.Run("duplicate email is a conflict", func(mt *mtest.T) {
		db := newMockDB(mt)
		dup := mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error collection: users index: users_email_unique",
		})
		mt.AddMockResponses(dup, dup)

		_, err := db.UpsertUser(context.Background(), models.UserUpsert{UID: "uid-2", Email: "alice@example.com"})
		assert.True(mt, utils.IsErrorCode(err, utils.ErrDuplicate))
	})

	mt.Run("settings update on missing user is not found", func(mt *mtest.T) {
		db := newMockDB(mt)
		mt.AddMockResponses(findAndModifyResponse(nil))

		on := true
		_, err := db.UpdateAppearance(context.Background(), "ghost", models.AppearanceSettingsPatch{DarkMode: &on})
		assert.True(mt, utils.IsErrorCode(err, utils.ErrNotFound))
	})
}
