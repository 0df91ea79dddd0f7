// Command session-audit consumes session lifecycle events from RabbitMQ and
// writes them to the structured log.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"exptrack/internal/amqp"
	"exptrack/internal/cli"
	"exptrack/internal/log"
	"exptrack/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentAudit)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}()

	ctx, cancel := cli.GracefulShutdown(logger, 10*time.Second, nil)
	defer cancel()
	ctx = log.NewContext(ctx, logger)

	logger.Info("Session audit started",
		log.FieldOperation, log.OpStartup,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	err = client.ConsumeSessionEvents(ctx, func(ctx context.Context, e session.Event) error {
		log.FromContext(ctx).InfoContext(ctx, "Session event",
			log.FieldEvent, string(e.Kind),
			log.FieldUserID, e.UserID.String(),
			log.FieldUsername, e.Username,
			log.FieldRole, e.Role.String(),
			"at", e.At.Format(time.RFC3339))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
		return
	}
	logger.Info("Session audit stopped", log.FieldOperation, log.OpShutdown)
}
