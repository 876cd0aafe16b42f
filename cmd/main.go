package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"classifier-agent/handler"
	"classifier-agent/internal/domain"
	"classifier-agent/internal/handlers"
	"classifier-agent/internal/integrations/openai"
	"classifier-agent/internal/integrations/paramstore"
	"classifier-agent/internal/oracle"
	"classifier-agent/internal/pipeline"
	"classifier-agent/internal/repository"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	windowHours := envInt("HISTORY_WINDOW_HOURS", 24)
	historyLimit := envInt("HISTORY_MESSAGES_LIMIT", 5)
	retentionDays := envInt("HISTORY_RETENTION_DAYS", 90)
	queueSize := envInt("HISTORY_QUEUE_SIZE", 64)
	writeWorkers := envInt("HISTORY_WRITE_WORKERS", 2)
	callTimeoutSec := envInt("CALL_TIMEOUT_SECONDS", 10)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		logger.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		logger.Error("failed to create conversation store", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		logger.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	oracleClient, err := oracle.New(openaiClient, ssmClient, paramPrefix)
	if err != nil {
		logger.Error("failed to create oracle client", "err", err)
		os.Exit(1)
	}

	// ---- Pipeline ----
	registry, err := pipeline.NewRegistry(categoryHandlers(), handlers.NewDefault(), logger)
	if err != nil {
		logger.Error("failed to build handler registry", "err", err)
		os.Exit(1)
	}
	callTimeout := time.Duration(callTimeoutSec) * time.Second
	writer, err := pipeline.NewHistoryWriter(store, logger, queueSize, writeWorkers, callTimeout)
	if err != nil {
		logger.Error("failed to start history writer", "err", err)
		os.Exit(1)
	}
	p, err := pipeline.New(oracleClient, store, writer, registry, logger, pipeline.Config{
		WindowDuration:     time.Duration(windowHours) * time.Hour,
		MaxHistoryMessages: historyLimit,
		Retention:          time.Duration(retentionDays) * 24 * time.Hour,
		CallTimeout:        callTimeout,
		HistoryEnabled:     true,
		SubClassifyEnabled: true,
	})
	if err != nil {
		logger.Error("failed to create pipeline", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(p)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func categoryHandlers() map[domain.Category]pipeline.CategoryHandler {
	return map[domain.Category]pipeline.CategoryHandler{
		domain.CategorySubject:      handlers.NewSubject(),
		domain.CategoryApp:          handlers.NewApp(),
		domain.CategoryComplaint:    handlers.NewComplaint(),
		domain.CategoryGuidance:     handlers.NewGuidance(),
		domain.CategoryConversation: handlers.NewConversation(),
		domain.CategoryExamInfo:     handlers.NewExam(),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
