package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintboard/src/core/backlog"
	"sprintboard/src/infrastructure/job"
	"sprintboard/src/log"
	"sprintboard/src/storage/postgres/backlogctrl"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background embedding refresh worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := watermill.NewStdLogger(false, false)

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDatabase(db); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}()

	repo, err := backlogctrl.NewRepository(db, viper.GetInt64("snowflake.node"))
	if err != nil {
		return err
	}
	jobRepo := job.NewPostgresJobRepository(db)
	if err := jobRepo.AutoMigrate(cmd.Context()); err != nil {
		return err
	}

	gateway, err := newEmbeddingGateway(log.WithName("embedding"))
	if err != nil {
		return err
	}

	// The worker only refreshes, so the service gets no scheduler and never enqueues.
	service := backlog.NewService(repo,
		backlog.WithEmbedder(gateway),
		backlog.WithSearchConfig(searchConfig()),
		backlog.WithLogger(log.WithName("backlog")),
	)

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	jobService := job.NewJobService(nil, jobRepo, logger, viper.GetString("jobs.topic"), service)

	router.AddNoPublisherHandler(
		"embedding_refresh_processor",
		jobService.Topic(),
		amqpSubscriber,
		jobService.ProcessJobMessage,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()

	log.Info("Worker started", "topic", jobService.Topic(), "embeddingProvider", gateway.Name())

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-runErr:
		return err
	}

	log.Info("Shutting down...")
	cancel()
	if err := <-runErr; err != nil {
		log.Error(err, "Router stopped with error")
	}
	log.Info("Router stopped")

	return nil
}
