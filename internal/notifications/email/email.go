package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"slotly/pkg/config"
	"slotly/pkg/logger"
)

const (
	// QueueKey is the redis list the API pushes jobs onto and the worker
	// drains.
	QueueKey = "notification_emails"

	maxAttempts = 3
	popTimeout  = 5 * time.Second
)

// Job is one email delivery request. Attempts counts deliveries already
// tried; a job is dropped after maxAttempts failures.
type Job struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Attempts int    `json:"attempts"`
}

// Queue hands email jobs to the worker through redis, decoupling booking
// latency from SMTP latency.
type Queue struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewQueue(rdb *redis.Client, log *logger.Logger) *Queue {
	return &Queue{
		rdb: rdb,
		log: log,
	}
}

func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}

	if err := q.rdb.LPush(ctx, QueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue email job: %w", err)
	}

	q.log.Debug("Email job enqueued", "to", job.To, "subject", job.Subject)
	return nil
}

// Sender delivers one message. Satisfied by the SMTP sender in production
// and by fakes in tests.
type Sender interface {
	Send(job *Job) error
}

type smtpSender struct {
	cfg *config.Config
}

func NewSMTPSender(cfg *config.Config) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(job *Job) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.EmailFromName, s.cfg.EmailFrom, job.To, job.Subject, job.Body,
	)

	return smtp.SendMail(addr, auth, s.cfg.EmailFrom, []string{job.To}, []byte(msg))
}

// Worker drains the redis queue and delivers jobs, requeueing failures until
// they exhaust their attempts.
type Worker struct {
	rdb    *redis.Client
	sender Sender
	log    *logger.Logger
}

func NewWorker(rdb *redis.Client, sender Sender, log *logger.Logger) *Worker {
	return &Worker{
		rdb:    rdb,
		sender: sender,
		log:    log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("Email worker started", "queue", QueueKey)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Email worker stopping")
			return
		default:
		}

		result, err := w.rdb.BRPop(ctx, popTimeout, QueueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			w.log.Error("Failed to pop email job", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		// BRPop returns [key, value]
		if len(result) != 2 {
			continue
		}
		w.process(ctx, []byte(result[1]))
	}
}

func (w *Worker) process(ctx context.Context, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		w.log.Error("Dropping malformed email job", "error", err)
		return
	}

	job.Attempts++
	if err := w.sender.Send(&job); err != nil {
		if job.Attempts >= maxAttempts {
			w.log.Error("Email delivery failed permanently",
				"to", job.To,
				"subject", job.Subject,
				"attempts", job.Attempts,
				"error", err,
			)
			return
		}

		w.log.Warn("Email delivery failed, requeueing",
			"to", job.To,
			"attempt", job.Attempts,
			"error", err,
		)
		w.requeue(ctx, &job)
		return
	}

	w.log.Info("Email delivered", "to", job.To, "subject", job.Subject)
}

func (w *Worker) requeue(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		w.log.Error("Failed to marshal email job for requeue", "error", err)
		return
	}
	if err := w.rdb.LPush(ctx, QueueKey, data).Err(); err != nil {
		w.log.Error("Failed to requeue email job", "to", job.To, "error", err)
	}
}
