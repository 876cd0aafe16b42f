// Standalone HTTP server exposing the classify operation, for local runs
// and non-Lambda deployments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"classifier-agent/internal/domain"
	"classifier-agent/internal/handlers"
	"classifier-agent/internal/integrations/openai"
	"classifier-agent/internal/integrations/paramstore"
	"classifier-agent/internal/oracle"
	"classifier-agent/internal/pipeline"
	"classifier-agent/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}
	logger := slog.Default()
	ctx := context.Background()

	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	httpPort := envStr("HTTP_PORT", "8080")
	windowHours := envInt("HISTORY_WINDOW_HOURS", 24)
	historyLimit := envInt("HISTORY_MESSAGES_LIMIT", 5)
	retentionDays := envInt("HISTORY_RETENTION_DAYS", 90)
	queueSize := envInt("HISTORY_QUEUE_SIZE", 64)
	writeWorkers := envInt("HISTORY_WRITE_WORKERS", 2)
	callTimeoutSec := envInt("CALL_TIMEOUT_SECONDS", 10)

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

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

	registry, err := pipeline.NewRegistry(map[domain.Category]pipeline.CategoryHandler{
		domain.CategorySubject:      handlers.NewSubject(),
		domain.CategoryApp:          handlers.NewApp(),
		domain.CategoryComplaint:    handlers.NewComplaint(),
		domain.CategoryGuidance:     handlers.NewGuidance(),
		domain.CategoryConversation: handlers.NewConversation(),
		domain.CategoryExamInfo:     handlers.NewExam(),
	}, handlers.NewDefault(), logger)
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
	defer writer.Close()

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

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Post("/classify", classifyHandler(p))

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
}

type classifyRequest struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func classifyHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": string(pipeline.ErrorInvalidInput)})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": string(pipeline.ErrorInvalidInput)})
			return
		}

		var userKey *string
		if key := strings.TrimSpace(req.PhoneNumber); key != "" {
			userKey = &key
		}

		env, err := p.Classify(r.Context(), req.Message, userKey)
		if err != nil {
			status := http.StatusInternalServerError
			body := map[string]string{"error": string(pipeline.ErrorInternal)}
			var perr *pipeline.Error
			if errors.As(err, &perr) {
				body["error"] = string(perr.Code)
				body["stage"] = perr.Stage
				switch perr.Code {
				case pipeline.ErrorInvalidInput:
					status = http.StatusBadRequest
				case pipeline.ErrorUpstream:
					status = http.StatusBadGateway
				}
			}
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "err", err)
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

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
