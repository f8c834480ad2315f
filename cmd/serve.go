package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v2 "sprintboard/handler/http/v2"
	"sprintboard/src/core/backlog"
	"sprintboard/src/infrastructure/job"
	"sprintboard/src/log"
	"sprintboard/src/storage/minioctrl"
	"sprintboard/src/storage/postgres/backlogctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backlog API server",
	Long: `The serve command starts an HTTP server exposing projects, backlog items, tasks,
documentation, attachments and hybrid search. Writes enqueue embedding refresh jobs for the worker.`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.WithName("serve")

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
	if err := repo.AutoMigrate(ctx); err != nil {
		return err
	}
	jobRepo := job.NewPostgresJobRepository(db)
	if err := jobRepo.AutoMigrate(ctx); err != nil {
		return err
	}

	gateway, err := newEmbeddingGateway(log.WithName("embedding"))
	if err != nil {
		return err
	}

	opts := []backlog.Option{
		backlog.WithEmbedder(gateway),
		backlog.WithSearchConfig(searchConfig()),
		backlog.WithLogger(log.WithName("backlog")),
	}

	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
		viper.GetString("minio.attachment_bucket"),
	)
	if err != nil {
		return err
	}
	if err := minioService.EnsureBucketExists(ctx); err != nil {
		logger.Error(err, "Attachment bucket unavailable, uploads will fail until it is reachable",
			"bucket", minioService.Bucket())
	}
	opts = append(opts, backlog.WithObjectStore(minioService))

	// Without a broker, embeddings are only refreshed on demand or by reindex.
	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.Error(err, "AMQP publisher unavailable, embedding refresh jobs disabled")
	} else {
		defer publisher.Close()
		jobService := job.NewJobService(publisher, jobRepo, watermill.NewStdLogger(false, false),
			viper.GetString("jobs.topic"), nil)
		opts = append(opts, backlog.WithScheduler(jobService))
	}

	service := backlog.NewService(repo, opts...)
	handler := v2.NewHandler(service, gateway, log.WithName("http"))

	// Setup gin router
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	go func() {
		logger.Info("Server listening", "addr", srv.Addr, "embeddingProvider", gateway.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	logger.Info("Server exited")
	return nil
}
