// Command mailer consumes queued reservation notifications and sends them
// over SMTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nejcselan19/rezervacije/config"
	"github.com/nejcselan19/rezervacije/notify"
)

func main() {
	cfg, err := config.LoadMailer()
	if err != nil {
		log.Fatal(err)
	}

	conn, ch, err := notify.OpenQueue(cfg.AMQPURL, cfg.MailQueue)
	if err != nil {
		log.Fatalf("failed to open queue: %v", err)
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("failed to set prefetch: %v", err)
	}

	msgs, err := ch.Consume(
		cfg.MailQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatalf("failed to register consumer: %v", err)
	}

	worker := notify.NewWorker(&notify.SMTPMailer{
		Addr:     cfg.SMTPAddr,
		From:     cfg.MailFrom,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("mailer listening on queue %s", cfg.MailQueue)
	worker.Run(ctx, msgs)
	log.Println("mailer stopped")
}
