package notify

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Mailer sends one rendered email.
type Mailer interface {
	Mail(ctx context.Context, to, subject, body string) error
}

// Worker consumes queued messages, renders them and hands them to a Mailer.
type Worker struct {
	renderer *Renderer
	mailer   Mailer
}

func NewWorker(m Mailer) *Worker {
	return &Worker{renderer: NewRenderer(), mailer: m}
}

// Run handles deliveries until ctx is done or the channel is closed.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle processes a single delivery. Malformed messages are dropped. A
// failed send is requeued once and dropped if it fails again.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		log.Printf("mail worker: dropping malformed message %s: %v", d.MessageId, err)
		reject(d)
		return
	}

	subject, body, err := w.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		log.Printf("mail worker: dropping message %s: %v", d.MessageId, err)
		reject(d)
		return
	}

	if err := w.mailer.Mail(ctx, msg.To, subject, body); err != nil {
		if d.Redelivered {
			log.Printf("mail worker: giving up on %s to %s: %v", msg.Template, msg.To, err)
			reject(d)
			return
		}
		log.Printf("mail worker: requeueing %s to %s: %v", msg.Template, msg.To, err)
		if err := d.Nack(false, true); err != nil {
			log.Printf("mail worker: nack failed: %v", err)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.Printf("mail worker: ack failed: %v", err)
	}
}

func reject(d amqp.Delivery) {
	if err := d.Reject(false); err != nil {
		log.Printf("mail worker: reject failed: %v", err)
	}
}
