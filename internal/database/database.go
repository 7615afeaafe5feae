// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"gator-overflow/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DBAdapter defines the common interface for data access. Every operation that
// must survive concurrent callers is a single atomic document update.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// Post methods
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostAndIncrementViews(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	PostExists(ctx context.Context, id string) (bool, error)
	AddAnswer(ctx context.Context, postID string, answer *models.Answer) (*models.Post, error)
	TogglePostUpvote(ctx context.Context, postID, userID string) (*models.UpvoteState, error)
	ToggleAnswerUpvote(ctx context.Context, postID, answerID, userID string) (*models.UpvoteState, error)

	// Tag methods
	UpsertTag(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) error

	// User methods
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpsertUser(ctx context.Context, in models.UserUpsert) (*models.User, error)
	UpdateProfile(ctx context.Context, uid string, patch models.ProfilePatch) (*models.User, error)
	UpdateNotificationSettings(ctx context.Context, uid string, patch models.NotificationSettingsPatch) (*models.User, error)
	UpdateAppearance(ctx context.Context, uid string, patch models.AppearanceSettingsPatch) (*models.User, error)
}

type MongoDB struct {
	Client *mongo.Client
	Posts  *mongo.Collection
	Tags   *mongo.Collection
	Users  *mongo.Collection
	logger *zap.Logger
}

var _ DBAdapter = (*MongoDB)(nil)

// NewMongoDB connects to MongoDB, verifies the connection and makes sure the
// unique indexes the upserts rely on exist. The caller owns the returned
// handle and must Close it.
func NewMongoDB(ctx context.Context, uri, dbName string, connectTimeout time.Duration, logger *zap.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", dbName))

	m := NewMongoDBFromClient(client, dbName, logger)
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// NewMongoDBFromClient wraps an already connected client.
func NewMongoDBFromClient(client *mongo.Client, dbName string, logger *zap.Logger) *MongoDB {
	db := client.Database(dbName)
	return &MongoDB{
		Client: client,
		Posts:  db.Collection("posts"),
		Tags:   db.Collection("tags"),
		Users:  db.Collection("users"),
		logger: logger,
	}
}

// EnsureIndexes creates the unique indexes backing tag and email identity.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	if _, err := m.Tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("tags_name_unique"),
	}); err != nil {
		return fmt.Errorf("failed to create tag name index: %w", err)
	}

	if _, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	}); err != nil {
		return fmt.Errorf("failed to create user email index: %w", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	m.logger.Info("Closing MongoDB connection")
	return m.Client.Disconnect(ctx)
}

// afterUpdate returns find-and-modify options that hand back the updated document.
func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
