package actors

import (
	"context"
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Message types for Tag operations
type (
	// UpsertTagsMsg records one association event per distinct name.
	UpsertTagsMsg struct {
		Names []string
	}

	ListTagsMsg struct{}

	GetTagMsg struct {
		Name string
	}

	DeleteTagMsg struct {
		TagID string
	}
)

// TagActor handles tag operations
type TagActor struct {
	storeActor
}

func NewTagActor(store database.DBAdapter, metrics *utils.MetricsCollector, logger *zap.Logger, timeout time.Duration) actor.Actor {
	return &TagActor{
		storeActor: newStoreActor("tag", store, metrics, logger, timeout),
	}
}

func (a *TagActor) Receive(context actor.Context) {
	if a.lifecycle(context) {
		return
	}

	switch msg := context.Message().(type) {
	case *UpsertTagsMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		tags, err := upsertTags(ctx, a.store, models.NormalizeTags(msg.Names))
		a.respond(context, "upsert_tags", startTime, tags, err)

	case *ListTagsMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		tags, err := a.store.ListTags(ctx)
		a.respond(context, "list_tags", startTime, tags, err)

	case *GetTagMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		tag, err := a.store.GetTagByName(ctx, msg.Name)
		a.respond(context, "get_tag", startTime, tag, err)

	case *DeleteTagMsg:
		startTime := time.Now()
		ctx, cancel := a.opContext()
		defer cancel()

		err := a.store.DeleteTag(ctx, msg.TagID)
		a.respond(context, "delete_tag", startTime, true, err)

	default:
		a.logger.Warn("Unknown message type", zap.String("type", typeName(msg)))
	}
}

// upsertTags runs one atomic upsert per name, in order. Names must already be
// normalized and distinct. The first failure aborts the rest; tags already
// counted stay counted.
func upsertTags(ctx context.Context, store database.DBAdapter, names []string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		tag, err := store.UpsertTag(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
