// internal/database/post_repository.go
package database

import (
	"context"
	"errors"
	"time"

	"gator-overflow/internal/models"
	"gator-overflow/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// PostDocument represents the MongoDB schema for a post. Answers are embedded.
type PostDocument struct {
	ID         string           `bson:"_id"`
	Title      string           `bson:"title"`
	Content    string           `bson:"content"`
	AuthorID   string           `bson:"authorId"`
	AuthorName string           `bson:"authorName"`
	CreatedAt  time.Time        `bson:"createdAt"`
	Tags       []string         `bson:"tags"`
	Upvotes    int              `bson:"upvotes"`
	UpvotedBy  []string         `bson:"upvotedBy"`
	Views      int              `bson:"views"`
	Answers    []AnswerDocument `bson:"answers"`
}

// AnswerDocument is the embedded schema for an answer.
type AnswerDocument struct {
	ID         string    `bson:"_id"`
	Content    string    `bson:"content"`
	AuthorID   string    `bson:"authorId"`
	AuthorName string    `bson:"authorName"`
	CreatedAt  time.Time `bson:"createdAt"`
	Upvotes    int       `bson:"upvotes"`
	UpvotedBy  []string  `bson:"upvotedBy"`
}

// voteDocument is the projection read back after an upvote toggle.
type voteDocument struct {
	Upvotes   int              `bson:"upvotes"`
	UpvotedBy []string         `bson:"upvotedBy"`
	Answers   []AnswerDocument `bson:"answers"`
}

func answerModelToDocument(answer *models.Answer) AnswerDocument {
	upvotedBy := answer.UpvotedBy
	if upvotedBy == nil {
		upvotedBy = []string{}
	}
	return AnswerDocument{
		ID:         answer.ID,
		Content:    answer.Content,
		AuthorID:   answer.AuthorID,
		AuthorName: answer.AuthorName,
		CreatedAt:  answer.CreatedAt,
		Upvotes:    answer.Upvotes,
		UpvotedBy:  upvotedBy,
	}
}

// postModelToDocument converts a Post model to a MongoDB document.
func postModelToDocument(post *models.Post) *PostDocument {
	post.Normalize()
	answers := make([]AnswerDocument, 0, len(post.Answers))
	for _, answer := range post.Answers {
		answers = append(answers, answerModelToDocument(answer))
	}
	return &PostDocument{
		ID:         post.ID,
		Title:      post.Title,
		Content:    post.Content,
		AuthorID:   post.AuthorID,
		AuthorName: post.AuthorName,
		CreatedAt:  post.CreatedAt,
		Tags:       post.Tags,
		Upvotes:    post.Upvotes,
		UpvotedBy:  post.UpvotedBy,
		Views:      post.Views,
		Answers:    answers,
	}
}

// postDocumentToModel converts a MongoDB document to a Post model.
func postDocumentToModel(doc *PostDocument) *models.Post {
	answers := make([]*models.Answer, 0, len(doc.Answers))
	for _, a := range doc.Answers {
		answers = append(answers, &models.Answer{
			ID:         a.ID,
			Content:    a.Content,
			AuthorID:   a.AuthorID,
			AuthorName: a.AuthorName,
			CreatedAt:  a.CreatedAt,
			Upvotes:    a.Upvotes,
			UpvotedBy:  a.UpvotedBy,
		})
	}
	post := &models.Post{
		ID:         doc.ID,
		Title:      doc.Title,
		Content:    doc.Content,
		AuthorID:   doc.AuthorID,
		AuthorName: doc.AuthorName,
		CreatedAt:  doc.CreatedAt,
		Tags:       doc.Tags,
		Upvotes:    doc.Upvotes,
		UpvotedBy:  doc.UpvotedBy,
		Views:      doc.Views,
		Answers:    answers,
	}
	return post.Normalize()
}

// CreatePost inserts a new post.
func (m *MongoDB) CreatePost(ctx context.Context, post *models.Post) error {
	if _, err := m.Posts.InsertOne(ctx, postModelToDocument(post)); err != nil {
		return utils.NewDatabaseError("create post", err)
	}
	return nil
}

// GetPostAndIncrementViews bumps the view counter and returns the post as it
// is after the increment, in one round trip.
func (m *MongoDB) GetPostAndIncrementViews(ctx context.Context, id string) (*models.Post, error) {
	var doc PostDocument
	err := m.Posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		afterUpdate(),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("fetch post", err)
	}
	return postDocumentToModel(&doc), nil
}

// ListPosts returns every post, newest first.
func (m *MongoDB) ListPosts(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.Posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("fetch posts", err)
	}
	defer cursor.Close(ctx)

	var docs []PostDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.NewDatabaseError("fetch posts", err)
	}

	posts := make([]*models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, postDocumentToModel(&docs[i]))
	}
	return posts, nil
}

// UpdatePost applies the supplied fields. An empty patch returns the post
// unchanged.
func (m *MongoDB) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.AuthorName != nil {
		set["authorName"] = *patch.AuthorName
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}

	var doc PostDocument
	var err error
	if len(set) == 0 {
		err = m.Posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	} else {
		err = m.Posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("update post", err)
	}
	return postDocumentToModel(&doc), nil
}

// DeletePost removes a post together with its embedded answers.
func (m *MongoDB) DeletePost(ctx context.Context, id string) error {
	result, err := m.Posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return utils.NewDatabaseError("delete post", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Post")
	}
	return nil
}

// PostExists reports whether a post with the id is stored, without counting a view.
func (m *MongoDB) PostExists(ctx context.Context, id string) (bool, error) {
	n, err := m.Posts.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, utils.NewDatabaseError("check post", err)
	}
	return n > 0, nil
}

// AddAnswer appends an answer to the post.
func (m *MongoDB) AddAnswer(ctx context.Context, postID string, answer *models.Answer) (*models.Post, error) {
	var doc PostDocument
	err := m.Posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"answers": answerModelToDocument(answer)}},
		afterUpdate(),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("add answer", err)
	}
	return postDocumentToModel(&doc), nil
}

// toggledVoters builds an aggregation expression that removes userID from the
// array at path when present and appends it otherwise.
func toggledVoters(path, userID string) bson.M {
	voter := bson.M{"$literal": userID}
	voters := bson.M{"$ifNull": bson.A{path, bson.A{}}}
	return bson.M{"$cond": bson.A{
		bson.M{"$in": bson.A{voter, voters}},
		bson.M{"$filter": bson.M{
			"input": voters,
			"as":    "voter",
			"cond":  bson.M{"$ne": bson.A{"$$voter", voter}},
		}},
		bson.M{"$concatArrays": bson.A{voters, bson.A{voter}}},
	}}
}

// TogglePostUpvote flips the user's upvote on a post. The membership check,
// the array edit and the recount run server side in a single update.
func (m *MongoDB) TogglePostUpvote(ctx context.Context, postID, userID string) (*models.UpvoteState, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"upvotedBy": toggledVoters("$upvotedBy", userID)}}},
		{{Key: "$set", Value: bson.M{"upvotes": bson.M{"$size": "$upvotedBy"}}}},
	}
	opts := afterUpdate().SetProjection(bson.M{"upvotes": 1, "upvotedBy": 1})

	var doc voteDocument
	err := m.Posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, pipeline, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("toggle post upvote", err)
	}
	return voteState(doc.Upvotes, doc.UpvotedBy), nil
}

// mapAnswer rewrites the matching answer by merging fields into it.
func mapAnswer(answerID string, fields bson.M) bson.M {
	return bson.M{"$map": bson.M{
		"input": "$answers",
		"as":    "answer",
		"in": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$$answer._id", bson.M{"$literal": answerID}}},
			bson.M{"$mergeObjects": bson.A{"$$answer", fields}},
			"$$answer",
		}},
	}}
}

// ToggleAnswerUpvote flips the user's upvote on one embedded answer.
func (m *MongoDB) ToggleAnswerUpvote(ctx context.Context, postID, answerID, userID string) (*models.UpvoteState, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"answers": mapAnswer(answerID, bson.M{
			"upvotedBy": toggledVoters("$$answer.upvotedBy", userID),
		})}}},
		{{Key: "$set", Value: bson.M{"answers": mapAnswer(answerID, bson.M{
			"upvotes": bson.M{"$size": "$$answer.upvotedBy"},
		})}}},
	}
	filter := bson.M{"_id": postID, "answers._id": answerID}
	opts := afterUpdate().SetProjection(bson.M{"answers": 1})

	var doc voteDocument
	err := m.Posts.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post or answer")
	}
	if err != nil {
		return nil, utils.NewDatabaseError("toggle answer upvote", err)
	}

	for _, answer := range doc.Answers {
		if answer.ID == answerID {
			return voteState(answer.Upvotes, answer.UpvotedBy), nil
		}
	}
	m.logger.Warn("Answer vanished after upvote toggle",
		zap.String("postId", postID), zap.String("answerId", answerID))
	return nil, utils.NewNotFoundError("Post or answer")
}

func voteState(upvotes int, upvotedBy []string) *models.UpvoteState {
	if upvotedBy == nil {
		upvotedBy = []string{}
	}
	return &models.UpvoteState{Upvotes: upvotes, UpvotedBy: upvotedBy}
}
