package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/numa-app/numa-core/internal/api/handlers"
	"github.com/numa-app/numa-core/internal/api/middleware"
	"github.com/numa-app/numa-core/internal/config"
	"github.com/numa-app/numa-core/internal/fim"
	"github.com/numa-app/numa-core/internal/jobs"
	"github.com/numa-app/numa-core/internal/jobs/inmemory"
	"github.com/numa-app/numa-core/internal/ledger"
	bqstore "github.com/numa-app/numa-core/internal/ledger/store/bigquery"
	memstore "github.com/numa-app/numa-core/internal/ledger/store/memory"
	"github.com/numa-app/numa-core/internal/logger"
	"github.com/numa-app/numa-core/internal/orchestrator"
	genaiprovider "github.com/numa-app/numa-core/internal/providers/genai"
	"github.com/numa-app/numa-core/internal/providers/gcsdocs"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ledger store")
	}
	defer closeStore()

	genaiClient, err := genaiprovider.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize genai client")
	}
	reasoner := genaiprovider.NewRetryingReasoner(genaiClient)
	transcriber := genaiprovider.NewRetryingTranscriber(genaiClient)
	motor := fim.New(transcriber, reasoner, genaiClient)

	led := ledger.New(store, motor, log)
	led.SetConfidenceThreshold(cfg.ConfidenceThreshold)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueBuffer, jobStore)
	led.SetRetryQueue(jobQueue)

	orch := orchestrator.New(motor, motor, led, log)

	var fetcher *gcsdocs.Fetcher
	if cfg.DocumentsBucket != "" {
		fetcher, err = gcsdocs.Open(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize document fetcher")
		}
		defer fetcher.Close()
	} else {
		log.Warn().Msg("no documents bucket configured, verify-document endpoint will fail")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := jobs.NewRecategorizeHandler(led)
	go func() {
		log.Info().Msg("starting recategorization worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("job worker stopped with error")
		}
	}()

	messagesHandler := handlers.NewMessagesHandler(orch, log)
	verificationHandler := handlers.NewVerificationHandler(led, fetcher, motor, log)
	transactionsHandler := handlers.NewTransactionsHandler(led, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/messages/text", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			messagesHandler.HandleText(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/messages/voice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			messagesHandler.HandleVoice(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/summary/daily", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.DailySummary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		switch {
		case strings.HasSuffix(rest, "/verify-document") && r.Method == http.MethodPost:
			id := strings.TrimSuffix(rest, "/verify-document")
			verificationHandler.VerifyWithDocument(w, r, id)
		case strings.HasSuffix(rest, "/verify-manual") && r.Method == http.MethodPost:
			id := strings.TrimSuffix(rest, "/verify-manual")
			verificationHandler.VerifyManual(w, r, id)
		default:
			middleware.WriteError(w, http.StatusNotFound, "not found")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting numa api server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close job queue")
	}

	log.Info().Msg("server exited")
}

func buildStore(ctx context.Context, cfg *config.Config) (ledger.Store, func(), error) {
	if cfg.Store == config.StoreBigQuery {
		st, err := bqstore.Open(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, func() {}, err
		}
		return st, func() { st.Close() }, nil
	}
	return memstore.New(), func() {}, nil
}
