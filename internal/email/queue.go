package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/redmonkez12/go-auth-verify/internal/logging"
)

const (
	TypeVerificationEmail = "email:verification"
	queueName             = "email"
)

// VerificationPayload is the asynq task body for a verification email.
type VerificationPayload struct {
	To        string    `json:"to"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender enqueues verification emails for delivery by a Worker.
type QueueSender struct {
	client   enqueuer
	maxRetry int
}

func NewQueueSender(client *asynq.Client, maxRetry int) *QueueSender {
	return &QueueSender{client: client, maxRetry: maxRetry}
}

func (q *QueueSender) SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	body, err := json.Marshal(VerificationPayload{To: to, Code: code, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeVerificationEmail, body, asynq.Queue(queueName))
	info, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(q.maxRetry))
	if err != nil {
		return fmt.Errorf("enqueue verification email: %w", err)
	}

	logging.GetLoggerFromContext(ctx).Debug("verification email enqueued", "task_id", info.ID, "email", to)
	return nil
}

// VerificationHandler processes verification email tasks.
type VerificationHandler struct {
	sender Sender
	logger *logging.Logger
	now    func() time.Time
}

func NewVerificationHandler(sender Sender, logger *logging.Logger) *VerificationHandler {
	return &VerificationHandler{sender: sender, logger: logger, now: time.Now}
}

// ProcessTask delivers the code. Codes that expired while queued are dropped
// without retry.
func (h *VerificationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload VerificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", errors.Join(err, asynq.SkipRetry))
	}
	if payload.To == "" || payload.Code == "" {
		return fmt.Errorf("missing recipient or code: %w", asynq.SkipRetry)
	}

	if !h.now().Before(payload.ExpiresAt) {
		h.logger.Warn("dropping expired verification email", "email", payload.To)
		return nil
	}

	ctx = logging.WithLogger(ctx, h.logger.WithFields(map[string]any{"task": TypeVerificationEmail}))
	return h.sender.SendVerificationCode(ctx, payload.To, payload.Code, payload.ExpiresAt)
}

// Worker runs an asynq server that delivers queued emails.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logging.Logger
}

func NewWorker(opt asynq.RedisConnOpt, sender Sender, logger *logging.Logger) *Worker {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			queueName: 1,
		},
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeVerificationEmail, NewVerificationHandler(sender, logger))

	return &Worker{server: server, mux: mux, logger: logger}
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start email worker: %w", err)
	}
	w.logger.Info("email worker started", "queue", queueName)
	return nil
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
