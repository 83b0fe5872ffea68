package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"rfqportal/internal/config"
	"rfqportal/internal/jobs"
	"rfqportal/internal/logger"
	"rfqportal/internal/mailer"
)

func main() {
	envFile := pflag.String("env-file", "configs/.env", "optional dotenv file loaded before the environment")
	concurrency := pflag.Int("concurrency", 5, "number of mail tasks processed in parallel")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*envFile, slog.Default())
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg)

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, log)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      log,
		Sender:      sender,
		Concurrency: *concurrency,
	})
	if err != nil {
		log.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("mail worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("mail worker stopped")
}
