package primary

import (
	"context"

	"github.com/example/appraise/internal/core/tasktype"
)

// AnnotationService defines the primary port for annotators doing work.
type AnnotationService interface {
	// Authenticate checks a login and returns the annotator.
	Authenticate(ctx context.Context, username, password string) (*Annotator, error)

	// NextTask returns the annotator's next open task of a type.
	NextTask(ctx context.Context, username string, taskType tasktype.Type) (*TaskContext, error)

	// Submit records a result for the task previously offered.
	Submit(ctx context.Context, username string, taskType tasktype.Type, sub Submission) (*SubmitReceipt, error)
}

// TaskContext is what an annotator sees for one task.
type TaskContext struct {
	TaskID       string            `json:"task_id"`
	ItemID       string            `json:"item_id"`
	ItemType     string            `json:"item_type"`
	TaskType     string            `json:"task_type"`
	Campaign     string            `json:"campaign"`
	Instructions string            `json:"instructions,omitempty"`
	Fields       map[string]string `json:"fields"`
}

// Submission carries the posted form values.
type Submission struct {
	TaskID         string
	ItemID         string
	StartTimestamp string
	EndTimestamp   string
	// Values holds the score fields.
	Values map[string]string
}

// SubmitReceipt confirms a recorded result.
type SubmitReceipt struct {
	TaskID      string           `json:"task_id"`
	ItemID      string           `json:"item_id"`
	Scores      tasktype.Payload `json:"scores"`
	CompletedAt string           `json:"completed_at"`
	Token       string           `json:"token,omitempty"`
}
