package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/models"
)

// MongoStore handles task document CRUD in MongoDB. Every read and write is
// scoped to the owning user inside the query itself, so tenant isolation does
// not depend on callers remembering to check.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("tasks")}
}

// EnsureIndexes creates the query indexes used by list and lookup paths.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "due_date", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	return err
}

func taskID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.CodeInvalidIdentifier, "malformed task id", err)
	}
	return oid, nil
}

// Insert stores a new task and stamps its timestamps.
func (s *MongoStore) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	if _, err := s.col.InsertOne(ctx, task); err != nil {
		return nil, apperr.Wrap(apperr.CodeServer, "insert task", err)
	}
	return task, nil
}

// GetByID returns the task only if it belongs to ownerID. A task owned by
// someone else is reported as not found, never as a permission error.
func (s *MongoStore) GetByID(ctx context.Context, id, ownerID string) (*models.Task, error) {
	oid, err := taskID(id)
	if err != nil {
		return nil, err
	}
	var task models.Task
	err = s.col.FindOne(ctx, bson.M{"_id": oid, "owner_id": ownerID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "task not found", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "get task", err)
	}
	return &task, nil
}

// Update applies the patch to the owner's task and returns the new document.
// An empty patch status keeps the stored status.
func (s *MongoStore) Update(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	oid, err := taskID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"title":       patch.Title,
		"description": patch.Description,
		"due_date":    patch.DueDate.UTC(),
		"updated_at":  time.Now().UTC(),
	}
	if patch.Status != "" {
		set["status"] = patch.Status
	}

	var task models.Task
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "owner_id": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "task not found", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "update task", err)
	}
	return &task, nil
}

// UpdateStatus changes only the status of the owner's task.
func (s *MongoStore) UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Task, error) {
	oid, err := taskID(id)
	if err != nil {
		return nil, err
	}
	var task models.Task
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "owner_id": ownerID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.CodeNotFound, "task not found", err)
		}
		return nil, apperr.Wrap(apperr.CodeServer, "update task status", err)
	}
	return &task, nil
}

// Delete removes the owner's task.
func (s *MongoStore) Delete(ctx context.Context, id, ownerID string) error {
	oid, err := taskID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid, "owner_id": ownerID})
	if err != nil {
		return apperr.Wrap(apperr.CodeServer, "delete task", err)
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.CodeNotFound, "task not found")
	}
	return nil
}

// List returns the owner's tasks matching the validated criteria. The sort
// carries a secondary ascending _id key: ObjectIDs are monotonic, so ties on
// the chosen field break by insertion order and the overall order is stable.
func (s *MongoStore) List(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Task, error) {
	filter := bson.M{"owner_id": ownerID}
	if opts.Status != nil {
		filter["status"] = *opts.Status
	}
	sort := bson.D{
		{Key: opts.SortField.StorageKey(), Value: opts.SortOrder.Direction()},
		{Key: "_id", Value: 1},
	}

	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeServer, "list tasks", err)
	}
	defer cur.Close(ctx)

	tasks := []models.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, apperr.Wrap(apperr.CodeServer, "decode tasks", err)
	}
	return tasks, nil
}
