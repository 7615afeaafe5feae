// internal/database/tag_repository.go
package database

import (
	"context"
	"errors"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TagDocument represents the MongoDB schema for a tag.
type TagDocument struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Count int    `bson:"count"`
}

func tagDocumentToModel(doc *TagDocument) *models.Tag {
	return &models.Tag{
		ID:    doc.ID,
		Name:  doc.Name,
		Count: doc.Count,
	}
}

// UpsertTag creates the tag with count 1 or increments an existing one.
// Two concurrent first inserts can race on the unique name index; the loser
// retries once and lands on the increment branch.
func (m *MongoDB) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	name = models.NormalizeTagName(name)
	if name == "" {
		return nil, utils.NewValidationError("tag name is required")
	}

	tag, err := m.upsertTagOnce(ctx, name)
	if mongo.IsDuplicateKeyError(err) {
		m.logger.Debug("Retrying tag upsert after duplicate key", zap.String("tag", name))
		tag, err = m.upsertTagOnce(ctx, name)
	}
	if err != nil {
		return nil, utils.NewDatabaseError("upsert tag", err)
	}
	return tag, nil
}

func (m *MongoDB) upsertTagOnce(ctx context.Context, name string) (*models.Tag, error) {
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"_id": uuid.New().String()},
	}
	opts := afterUpdate().SetUpsert(true)

	var doc TagDocument
	if err := m.Tags.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return tagDocumentToModel(&doc), nil
}

// ListTags returns all tags, most used first and then alphabetically.
func (m *MongoDB) ListTags(ctx context.Context) ([]*models.Tag, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "count", Value: -1},
		{Key: "name", Value: 1},
	})
	cursor, err := m.Tags.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("fetch tags", err)
	}
	defer cursor.Close(ctx)

	var docs []TagDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.NewDatabaseError("fetch tags", err)
	}

	tags := make([]*models.Tag, 0, len(docs))
	for i := range docs {
		tags = append(tags, tagDocumentToModel(&docs[i]))
	}
	return tags, nil
}

// GetTagByName looks a tag up by its normalized name.
func (m *MongoDB) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var doc TagDocument
	err := m.Tags.FindOne(ctx, bson.M{"name": models.NormalizeTagName(name)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Tag")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("fetch tag", err)
	}
	return tagDocumentToModel(&doc), nil
}

// DeleteTag removes a tag record. Posts keep their copies of the name.
func (m *MongoDB) DeleteTag(ctx context.Context, id string) error {
	result, err := m.Tags.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return utils.NewDatabaseError("delete tag", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Tag")
	}
	return nil
}
