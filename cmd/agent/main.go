package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/config"
	"github.com/Divas-Gupta30/ayurwell/internal/graph"
	"github.com/Divas-Gupta30/ayurwell/internal/llm"
	"github.com/Divas-Gupta30/ayurwell/internal/logging"
	"github.com/Divas-Gupta30/ayurwell/internal/processing"
	"github.com/Divas-Gupta30/ayurwell/internal/server"
	"github.com/Divas-Gupta30/ayurwell/internal/storage"
	"github.com/Divas-Gupta30/ayurwell/internal/websearch"
)

const usage = "Usage: agent <query|serve|check> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	config.LoadDotEnv()
	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load(logger)

	switch os.Args[1] {
	case "query":
		err = runQuery(cfg, logger, os.Args[2:])
	case "serve":
		err = runServe(cfg, logger)
	case "check":
		err = runCheck(cfg, logger)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

// app holds the wired workflow and the resources that must be closed on exit.
type app struct {
	workflow *graph.Workflow
	history  *storage.HistoryStore
	pool     *pgxpool.Pool
	rdb      *redis.Client

	embedder graph.Embedder
	index    graph.VectorIndex
	web      graph.WebSearchProvider
	model    graph.LanguageModel
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	a.embedder = processing.NewEmbedder(ctx, cfg.Embedding, logger)
	a.index, a.pool = storage.OpenVectorIndex(ctx, cfg.DatabaseURL, cfg.VectorTable, logger)
	a.model = llm.New(ctx, cfg.LLM, logger)

	web := websearch.New(ctx, cfg.WebSearch, logger)
	if web.Available() {
		a.rdb = websearch.NewRedis(cfg.Redis, logger)
		web = websearch.NewCached(web, a.rdb, cfg.CacheTTL, logger)
	}
	a.web = web

	history, err := storage.OpenHistoryStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("conversation history unavailable, threads will not persist", zap.Error(err))
	} else {
		a.history = history
	}

	sources := graph.NewSources(a.embedder, a.index, a.web, cfg.Sources, logger)
	grader := graph.NewGrader(a.model, cfg.GraderConcurrency, logger)
	synth := graph.NewSynthesizer(a.model, cfg.GenerationTimeout, logger)

	a.workflow, err = graph.NewWorkflow(sources, grader, synth, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building workflow: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
}

func runQuery(cfg *config.Config, logger *zap.Logger, args []string) error {
	queryCmd := flag.NewFlagSet("query", flag.ExitOnError)
	queryText := queryCmd.String("q", "", "query text")
	intentFlag := queryCmd.String("intent", "health", "intent: health, greeting or off_topic")
	threadFlag := queryCmd.String("thread", "", "conversation thread id")
	queryCmd.Parse(args)

	if *queryText == "" {
		return fmt.Errorf("please provide -q \"your query\"")
	}
	intent, ok := graph.ParseIntent(*intentFlag)
	if !ok {
		return fmt.Errorf("unknown intent %q", *intentFlag)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	threadID := *threadFlag
	if threadID == "" {
		threadID = uuid.NewString()
	}

	var history []graph.Message
	if a.history != nil {
		history, err = a.history.Load(ctx, threadID, cfg.HistorySize)
		if err != nil {
			logger.Warn("failed to load history", zap.Error(err))
		}
	}
	userMsg := graph.Message{Role: graph.RoleUser, Content: *queryText}
	history = append(history, userMsg)

	state, err := a.workflow.Run(ctx, graph.Turn{Intent: intent, Query: *queryText, History: history})
	if err != nil {
		return err
	}

	if a.history != nil {
		reply := graph.Message{Role: graph.RoleAssistant, Content: state.Message}
		if err := a.history.Append(ctx, threadID, userMsg, reply); err != nil {
			logger.Warn("failed to save history", zap.Error(err))
		}
	}

	fmt.Println("Answer:", state.Message)
	for _, p := range state.Evidence {
		fmt.Printf("  [%s] %s\n", p.Origin, p.Source)
	}
	fmt.Println("Thread:", threadID)
	return nil
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var history server.HistoryStore
	if a.history != nil {
		history = a.history
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(a.workflow, history, cfg.HistorySize, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("AyurWell server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	}

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// runCheck reports which capabilities were detected at startup.
func runCheck(cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	status := func(c graph.Capability) string {
		if c.Available() {
			return "available"
		}
		return "unavailable"
	}
	fmt.Println("embedder:     ", status(a.embedder))
	fmt.Println("vector index: ", status(a.index))
	fmt.Println("web search:   ", status(a.web))
	fmt.Println("language model:", status(a.model))
	fmt.Println("history store:", a.history != nil)
	fmt.Println("search cache: ", a.rdb != nil)
	return nil
}
