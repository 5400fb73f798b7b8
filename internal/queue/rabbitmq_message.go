package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a Job with its RabbitMQ delivery
type Message struct {
	Job      *Job
	Delivery amqp.Delivery
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	return m.Delivery.Ack(false)
}

// Nack negatively acknowledges the message. Without requeue it is routed to the DLQ.
func (m *Message) Nack(requeue bool) error {
	return m.Delivery.Nack(false, requeue)
}

// GetJob returns the decoded job
func (m *Message) GetJob() *Job {
	return m.Job
}

var _ MessageInterface = (*Message)(nil)
