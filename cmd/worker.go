package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/loan-servicing/internal/notification"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that drain queues filled by the HTTP server.`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Send queued borrower emails",
	Long:  `Consume the Redis notification queue and deliver emails over SMTP, or log them when email is disabled.`,
	Run: func(cmd *cobra.Command, args []string) {
		startNotificationWorker()
	},
}

var queueKey string

func startNotificationWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	rdb, err := initRedis(config.Redis, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	if rdb == nil {
		fmt.Fprintln(os.Stderr, "redis.addr is required for the notification worker")
		os.Exit(1)
	}
	defer rdb.Close()

	var sender notification.Sender = notification.NewLogSender(logger)
	if config.Email.Enabled {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     config.Email.Host,
			Port:     config.Email.Port,
			Username: config.Email.Username,
			Password: config.Email.Password,
			From:     config.Email.From,
		})
	}

	key := getStringFlag(queueKey, config.Notification.QueueKey)
	consumer := notification.NewConsumer(rdb, key, sender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notification worker is running. Press Ctrl+C to stop.", "queue_key", key, "email_enabled", config.Email.Enabled)

	if err := consumer.Run(ctx); err != nil {
		logger.Error("notification worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notification worker shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().StringVar(&queueKey, "queue-key", "", "Redis list to consume (overrides config)")

	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
