package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	now := time.Now()
	later := now.Add(90 * time.Second)
	expiry := now.Add(time.Hour)

	tests := []struct {
		name        string
		notBefore   *time.Time
		notAfter    *time.Time
		wantDelay   bool
		wantExpires bool
	}{
		{"immediate", nil, nil, false, false},
		{"delayed", &later, nil, true, false},
		{"expiring", nil, &expiry, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(JobTypeParseTask, uuid.New())
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter

			publishing, err := buildPublishing(job, now)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if publishing.MessageId != job.ID.String() {
				t.Errorf("Expected message id %s, got %s", job.ID, publishing.MessageId)
			}
			if publishing.DeliveryMode != amqp.Persistent {
				t.Error("Expected persistent delivery")
			}
			delay, hasDelay := publishing.Headers["x-delay"]
			if hasDelay != tt.wantDelay {
				t.Errorf("Expected delay header=%v, got %v", tt.wantDelay, publishing.Headers)
			}
			if tt.wantDelay && delay != int64(90000) {
				t.Errorf("Expected 90000ms delay, got %v", delay)
			}
			if (publishing.Expiration != "") != tt.wantExpires {
				t.Errorf("Expected expiration=%v, got %q", tt.wantExpires, publishing.Expiration)
			}

			var decoded Job
			if err := json.Unmarshal(publishing.Body, &decoded); err != nil {
				t.Fatalf("Body is not a job: %v", err)
			}
			if decoded.ID != job.ID {
				t.Errorf("Expected body job id %s, got %s", job.ID, decoded.ID)
			}
		})
	}
}

func TestClassifyDelivery(t *testing.T) {
	t.Parallel()

	now := time.Now()
	encode := func(mutate func(*Job)) []byte {
		job := NewJob(JobTypeParseTask, uuid.New())
		mutate(job)
		data, _ := json.Marshal(job)
		return data
	}
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name string
		body []byte
		want deliveryAction
	}{
		{"ready", encode(func(*Job) {}), deliverToWorker},
		{"garbage", []byte("{not json"), rejectToDLQ},
		{"expired", encode(func(j *Job) { j.NotAfter = &past }), dropExpired},
		{"not yet due", encode(func(j *Job) { j.NotBefore = &future }), requeueLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, got, err := classifyDelivery(tt.body, now)
			if got != tt.want {
				t.Errorf("Expected action %d, got %d", tt.want, got)
			}
			if (tt.want == rejectToDLQ) != (err != nil) {
				t.Errorf("Unexpected error state: %v", err)
			}
		})
	}
}

type fakeAcknowledger struct {
	acked    []uint64
	nacked   []uint64
	requeued bool
	err      error
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return f.err
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeued = requeue
	return f.err
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestMessage_AckNack(t *testing.T) {
	t.Parallel()

	ack := &fakeAcknowledger{}
	job := NewJob(JobTypeParseTask, uuid.New())
	msg := &Message{Job: job, Delivery: amqp.Delivery{Acknowledger: ack, DeliveryTag: 7}}

	if msg.GetJob() != job {
		t.Error("Expected GetJob to return the wrapped job")
	}
	if err := msg.Ack(); err != nil {
		t.Fatalf("Unexpected ack error: %v", err)
	}
	if err := msg.Nack(false); err != nil {
		t.Fatalf("Unexpected nack error: %v", err)
	}
	if len(ack.acked) != 1 || ack.acked[0] != 7 {
		t.Errorf("Expected ack of tag 7, got %v", ack.acked)
	}
	if len(ack.nacked) != 1 || ack.requeued {
		t.Errorf("Expected one nack without requeue, got %v requeue=%v", ack.nacked, ack.requeued)
	}

	failing := &Message{Delivery: amqp.Delivery{Acknowledger: &fakeAcknowledger{err: errors.New("channel closed")}}}
	if err := failing.Ack(); err == nil {
		t.Error("Expected ack error to propagate")
	}
}
