package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/fimbul-io/sporing/pkg/cmd"
	"github.com/fimbul-io/sporing/pkg/log"
	"github.com/fimbul-io/sporing/pkg/person"
	"github.com/fimbul-io/sporing/pkg/stream"
	"github.com/fimbul-io/sporing/pkg/tracing"
	"github.com/fimbul-io/sporing/pkg/transition"
)

const defaultPort = 9090

func main() {
	command := &cli.Command{
		Name:                  "sporing",
		Usage:                 "Track vedtaksperiode state transitions and serve the resulting state machine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the HTTP server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Postgres connection URL",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "kafka-brokers",
				Usage:    "Comma-separated Kafka broker addresses",
				Required: true,
				Sources:  cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-topic",
				Usage:   "Kafka topic carrying vedtaksperiode events",
				Value:   "tbd.rapid.v1",
				Sources: cli.EnvVars("KAFKA_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "kafka-consumer-group",
				Usage:   "Kafka consumer group id",
				Value:   "sporing-v1",
				Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the behov side table (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "spleis-api-url",
				Usage:   "Base URL of the vedtaksperiode directory service",
				Sources: cli.EnvVars("SPLEIS_API_URL"),
			},
			&cli.StringFlag{
				Name:    "spleis-api-scope",
				Usage:   "OAuth scope for directory service tokens",
				Sources: cli.EnvVars("SPLEIS_API_SCOPE"),
			},
			&cli.StringFlag{
				Name:    "spleis-api-token",
				Usage:   "Static bearer token for the directory service",
				Sources: cli.EnvVars("SPLEIS_API_TOKEN"),
			},
			&cli.BoolFlag{
				Name:    "tracing-enabled",
				Usage:   "Export traces via OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("sporing")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing sporing")

	tracer := tracing.Noop()

	if command.Bool("tracing-enabled") {
		var err error

		tracer, err = tracing.NewTracer(ctx, "sporing")
		if err != nil {
			return err
		}
	}

	db, err := cmd.ConnectPostgres(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := db.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close database", "error", err)
		}
	}()

	repository, err := transition.NewPostgresRepository(ctx, logger, db)
	if err != nil {
		return err
	}

	needsStore, err := cmd.NewNeedsStore(command.String("redis-url"), logger)
	if err != nil {
		return err
	}

	restricted := log.Restricted()

	consumer, err := stream.NewConsumer(
		command.String("kafka-brokers"),
		command.String("kafka-consumer-group"),
		command.String("kafka-topic"),
		logger,
		tracer,
		stream.NewTransitionRiver(repository, needsStore, logger, restricted),
		stream.NewDiscardRiver(repository, needsStore, logger, restricted),
		stream.NewNeedsRiver(needsStore, logger, restricted),
	)
	if err != nil {
		return err
	}

	defer func() {
		err := consumer.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close consumer", "error", err)
		}
	}()

	go func() {
		err := consumer.Start(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Consumer stopped", "error", err)
		}

		stop()
	}()

	directory := person.NewSpleisClient(
		command.String("spleis-api-url"),
		command.String("spleis-api-scope"),
		person.StaticTokenProvider(command.String("spleis-api-token")),
		restricted,
	)

	api := NewAPI(logger, repository, directory)
	app := api.App()

	go func() {
		<-ctx.Done()

		logger.Info("Shutting down sporing...")

		err := app.Shutdown()
		if err != nil {
			logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	err = app.Listen(":" + strconv.Itoa(command.Int("port")))
	if err != nil {
		logger.ErrorContext(ctx, "HTTP server stopped", "error", err)
	}

	return err
}
