package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/taskboard/backend/internal/apperr"
)

// Status is the workflow state of a task. All transitions are allowed in any
// direction.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus validates a raw status string against the allowed values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", apperr.New(apperr.CodeValidation,
		fmt.Sprintf("status must be one of %q, %q or %q", StatusPending, StatusInProgress, StatusCompleted))
}

// Task is a single to-do item stored in MongoDB, always owned by one user.
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID     string             `json:"owner_id" bson:"owner_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	DueDate     time.Time          `json:"due_date" bson:"due_date"`
	Status      Status             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`

	// Derived fields, computed on read and never stored.
	IsOverdue bool         `json:"is_overdue" bson:"-"`
	Owner     *UserSummary `json:"owner,omitempty" bson:"-"`
}

// Overdue reports whether the task's due date has passed without completion.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != StatusCompleted
}

// Finalize fills the derived fields before serialization.
func (t *Task) Finalize(now time.Time) {
	t.IsOverdue = t.Overdue(now)
}

// CreateTaskRequest is the JSON body for POST /tasks.
type CreateTaskRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=100"`
	Description string    `json:"description" validate:"max=500"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	Status      string    `json:"status"`
}

// UpdateTaskRequest is the JSON body for PUT /tasks/{id}. An empty status
// leaves the stored status unchanged.
type UpdateTaskRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=100"`
	Description string    `json:"description" validate:"max=500"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	Status      string    `json:"status"`
}

// UpdateStatusRequest is the JSON body for PATCH /tasks/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TaskPatch is the set of mutable task fields applied by an update. An empty
// Status means "keep the stored value".
type TaskPatch struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      Status
}
