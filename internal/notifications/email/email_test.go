package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"slotly/pkg/logger"
)

type fakeSender struct {
	sent []*Job
	err  error
}

func (s *fakeSender) Send(job *Job) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, job)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func TestProcess_DeliversJob(t *testing.T) {
	sender := &fakeSender{}
	w := NewWorker(nil, sender, testLogger())

	raw, _ := json.Marshal(&Job{To: "alice@example.com", Subject: "Booking confirmed", Body: "See you there"})
	w.process(context.Background(), raw)

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sender.sent))
	}
	if sender.sent[0].Attempts != 1 {
		t.Fatalf("expected attempt count 1, got %d", sender.sent[0].Attempts)
	}
}

func TestProcess_DropsMalformedJob(t *testing.T) {
	sender := &fakeSender{}
	w := NewWorker(nil, sender, testLogger())

	w.process(context.Background(), []byte("{not json"))

	if len(sender.sent) != 0 {
		t.Fatalf("malformed jobs must not reach the sender, got %d deliveries", len(sender.sent))
	}
}

func TestProcess_DropsJobAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unreachable")}
	// rdb stays nil: a job on its final attempt must be dropped, never
	// requeued.
	w := NewWorker(nil, sender, testLogger())

	raw, _ := json.Marshal(&Job{
		To:       "alice@example.com",
		Subject:  "Booking confirmed",
		Body:     "See you there",
		Attempts: maxAttempts - 1,
	})
	w.process(context.Background(), raw)
}
