package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"rfqportal/internal/mailer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries time-sensitive mail such as one-time codes.
	QueueCritical = "critical"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(msg mailer.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SendEmailHandler returns the handler for TaskTypeSendEmail backed by sender.
func SendEmailHandler(sender mailer.Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg mailer.Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TaskTypeSendEmail, err, asynq.SkipRetry)
		}
		if msg.To == "" {
			return fmt.Errorf("%s without recipient: %w", TaskTypeSendEmail, asynq.SkipRetry)
		}
		return sender.Send(ctx, msg)
	}
}
