package actors

import (
	"strings"
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Message types for Post operations
type (
	CreatePostMsg struct {
		Title      string
		Content    string
		AuthorID   string
		AuthorName string
		Tags       []string
	}

	// GetPostMsg fetches a post and counts the fetch as a view.
	GetPostMsg struct {
		PostID string
	}

	ListPostsMsg struct{}

	UpdatePostMsg struct {
		PostID string
		Patch  models.PostPatch
	}

	DeletePostMsg struct {
		PostID string
	}

	AddAnswerMsg struct {
		PostID     string
		Content    string
		AuthorID   string
		AuthorName string
	}

	TogglePostUpvoteMsg struct {
		PostID string
		UserID string
	}

	ToggleAnswerUpvoteMsg struct {
		PostID   string
		AnswerID string
		UserID   string
	}
)

// PostActor handles post and answer operations
type PostActor struct {
	storeActor
}

// NewPostActor creates a new PostActor instance
func NewPostActor(store database.DBAdapter, metrics *utils.MetricsCollector, logger *zap.Logger, timeout time.Duration) actor.Actor {
	return &PostActor{
		storeActor: newStoreActor("post", store, metrics, logger, timeout),
	}
}

// Receive handles incoming messages
func (a *PostActor) Receive(context actor.Context) {
	if a.lifecycle(context) {
		return
	}

	switch msg := context.Message().(type) {
	case *CreatePostMsg:
		a.handleCreatePost(context, msg)
	case *GetPostMsg:
		a.handleGetPost(context, msg)
	case *ListPostsMsg:
		a.handleListPosts(context)
	case *UpdatePostMsg:
		a.handleUpdatePost(context, msg)
	case *DeletePostMsg:
		a.handleDeletePost(context, msg)
	case *AddAnswerMsg:
		a.handleAddAnswer(context, msg)
	case *TogglePostUpvoteMsg:
		a.handleTogglePostUpvote(context, msg)
	case *ToggleAnswerUpvoteMsg:
		a.handleToggleAnswerUpvote(context, msg)
	default:
		a.logger.Warn("Unknown message type", zap.String("type", typeName(msg)))
	}
}

func (a *PostActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	startTime := time.Now()

	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Content) == "" {
		a.respond(context, "create_post", startTime, nil, utils.NewValidationError("title and content are required"))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	tags := models.NormalizeTags(msg.Tags)
	if _, err := upsertTags(ctx, a.store, tags); err != nil {
		a.respond(context, "create_post", startTime, nil, err)
		return
	}

	post := models.NewPost(msg.Title, msg.Content, msg.AuthorID, msg.AuthorName, tags)
	if err := a.store.CreatePost(ctx, post); err != nil {
		a.respond(context, "create_post", startTime, nil, err)
		return
	}

	a.logger.Debug("Created post", zap.String("postId", post.ID), zap.Strings("tags", tags))
	a.respond(context, "create_post", startTime, post, nil)
}

func (a *PostActor) handleGetPost(context actor.Context, msg *GetPostMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	post, err := a.store.GetPostAndIncrementViews(ctx, msg.PostID)
	a.respond(context, "get_post", startTime, post, err)
}

func (a *PostActor) handleListPosts(context actor.Context) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	posts, err := a.store.ListPosts(ctx)
	a.respond(context, "list_posts", startTime, posts, err)
}

func (a *PostActor) handleUpdatePost(context actor.Context, msg *UpdatePostMsg) {
	startTime := time.Now()
	patch := msg.Patch

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		a.respond(context, "update_post", startTime, nil, utils.NewValidationError("title cannot be empty"))
		return
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		a.respond(context, "update_post", startTime, nil, utils.NewValidationError("content cannot be empty"))
		return
	}
	if patch.Tags != nil {
		patch.Tags = models.NormalizeTags(patch.Tags)
	}

	ctx, cancel := a.opContext()
	defer cancel()

	// Tags are counted before the post is written, and only for a post that
	// exists, so a failed upsert leaves the post unchanged.
	if len(patch.Tags) > 0 {
		exists, err := a.store.PostExists(ctx, msg.PostID)
		if err != nil {
			a.respond(context, "update_post", startTime, nil, err)
			return
		}
		if !exists {
			a.respond(context, "update_post", startTime, nil, utils.NewNotFoundError("Post"))
			return
		}
		if _, err := upsertTags(ctx, a.store, patch.Tags); err != nil {
			a.respond(context, "update_post", startTime, nil, err)
			return
		}
	}

	post, err := a.store.UpdatePost(ctx, msg.PostID, patch)
	a.respond(context, "update_post", startTime, post, err)
}

func (a *PostActor) handleDeletePost(context actor.Context, msg *DeletePostMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	err := a.store.DeletePost(ctx, msg.PostID)
	a.respond(context, "delete_post", startTime, true, err)
}

func (a *PostActor) handleAddAnswer(context actor.Context, msg *AddAnswerMsg) {
	startTime := time.Now()

	if strings.TrimSpace(msg.Content) == "" {
		a.respond(context, "add_answer", startTime, nil, utils.NewValidationError("content is required"))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	answer := models.NewAnswer(msg.Content, msg.AuthorID, msg.AuthorName)
	post, err := a.store.AddAnswer(ctx, msg.PostID, answer)
	a.respond(context, "add_answer", startTime, post, err)
}

func (a *PostActor) handleTogglePostUpvote(context actor.Context, msg *TogglePostUpvoteMsg) {
	startTime := time.Now()

	if msg.UserID == "" {
		a.respond(context, "toggle_post_upvote", startTime, nil, utils.NewValidationError("userId is required"))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	state, err := a.store.TogglePostUpvote(ctx, msg.PostID, msg.UserID)
	a.respond(context, "toggle_post_upvote", startTime, state, err)
}

func (a *PostActor) handleToggleAnswerUpvote(context actor.Context, msg *ToggleAnswerUpvoteMsg) {
	startTime := time.Now()

	if msg.UserID == "" {
		a.respond(context, "toggle_answer_upvote", startTime, nil, utils.NewValidationError("userId is required"))
		return
	}

	ctx, cancel := a.opContext()
	defer cancel()

	state, err := a.store.ToggleAnswerUpvote(ctx, msg.PostID, msg.AnswerID, msg.UserID)
	a.respond(context, "toggle_answer_upvote", startTime, state, err)
}
