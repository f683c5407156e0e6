// Package notify delivers reservation emails. The API process hands messages
// to a Dispatcher; with RabbitMQ configured they are queued and a separate
// mailer process renders and sends them.
package notify

import (
	"context"
	"log"
	"time"
)

const (
	TemplateReservationConfirmed = "reservation_confirmed"
	TemplateReservationReceived  = "reservation_received"
	TemplateReservationCancelled = "reservation_cancelled"
)

// Dispatcher accepts a message for one recipient. Implementations may fail
// independently per call; callers treat delivery as best-effort.
type Dispatcher interface {
	Send(ctx context.Context, template, to string, data map[string]string) error
}

// Message is the queued form of a notification.
type Message struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Data     map[string]string `json:"data"`
	QueuedAt time.Time         `json:"queuedAt"`
}

// LogDispatcher renders messages into the process log. It is used when no
// message broker is configured.
type LogDispatcher struct {
	renderer *Renderer
}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{renderer: NewRenderer()}
}

func (d *LogDispatcher) Send(ctx context.Context, template, to string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := d.renderer.Render(template, data)
	if err != nil {
		return err
	}
	log.Printf("mail to %s: %s\n%s", to, subject, body)
	return nil
}
