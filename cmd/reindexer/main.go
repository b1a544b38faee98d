// Command reindexer is a Lambda function that consumes the table's DynamoDB
// stream and refreshes the search token map of every changed document.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/docket/dynamo"
	"github.com/jacentio/docket/store"
	"github.com/jacentio/docket/stream"
)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, err := cfg.level()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	registry, err := cfg.registry()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	backend := dynamo.New(dynamodb.NewFromConfig(awsCfg), cfg.Dynamo)
	s := store.NewWithRegistry(backend, cfg.Store, registry)
	s.SetLogger(logger)

	logger.Info("reindexer starting",
		"table", cfg.Dynamo.Table,
		"collections", len(registry.All()),
	)
	lambda.Start(stream.NewHandler(s, logger).HandleReindexBatch)
}
