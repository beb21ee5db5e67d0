package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

var errNoContent = errors.New("job has neither template nor subject with body")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	q, err := helpers.DialEmailQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Fatal("rabbitmq connect failed")
	}
	defer q.Close()

	msgs, err := q.Consume(cfg.EmailWorkerPrefetch)
	if err != nil {
		logger.WithError(err).Fatal("consume failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &worker{
		sender:   mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		resolver: mailtpl.NewCachingResolver(mailtpl.IPAPIResolver{}, time.Hour),
		retries:  cfg.EmailSendRetries,
		backoff:  time.Second,
		logger:   logger,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	q.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type worker struct {
	sender   mailer.Sender
	resolver mailtpl.GeoResolver
	retries  int
	backoff  time.Duration
	logger   *logrus.Logger
}

// handle acks delivered and undeliverable messages, and requeues once when
// the provider keeps failing.
func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	log := w.logger.WithField("message_id", msg.MessageId)
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		log.WithError(err).Warn("bad message")
		_ = msg.Nack(false, false)
		return
	}
	subject, text, html, err := w.render(ctx, &job)
	if err != nil {
		log.WithError(err).WithField("template", job.Template).Warn("render failed")
		_ = msg.Nack(false, false)
		return
	}
	if err := w.send(ctx, subject, job.To, text, html); err != nil {
		log.WithError(err).Error("send failed")
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
}

// render resolves a job to its final subject and bodies.
func (w *worker) render(ctx context.Context, job *mailer.EmailJob) (string, string, string, error) {
	helpers.NormalizeJob(job)
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", errNoContent
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	if w.resolver != nil {
		helpers.LocalizeTimesIfPossible(ctx, w.resolver, job.Data)
	}
	data, err := helpers.TemplateData(job.Data)
	if err != nil {
		return "", "", "", err
	}
	if data.Location == "" && data.IP != "" && w.resolver != nil {
		if g, err := w.resolver.Lookup(ctx, data.IP); err == nil {
			data.Location = mailtpl.FormatGeo(g)
		}
	}
	return mailtpl.Render(job.Template, data)
}

func (w *worker) send(ctx context.Context, subject string, to []string, text, html string) error {
	retries := w.retries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(w.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := w.sender.Send(c, subject, to, text, html); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
