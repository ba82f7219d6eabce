package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/avvvet/newsbuddy/internal/config"
	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/health"
	"github.com/avvvet/newsbuddy/internal/logger"
	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/newsapi"
	"github.com/avvvet/newsbuddy/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	lg := logger.New(cfg.LogLevel, cfg.DebugMode).With("service", cfg.ServiceName)
	slog.SetDefault(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *slog.Logger) error {
	lg.Info("🚀 starting NewsBuddy chat service",
		"news_api", cfg.NewsAPIBaseURL,
		"transport", cfg.NewsTransport,
		"nats_url", cfg.NatsURL,
		"http_addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// News service clients
	newsClient := newsapi.NewClient(cfg.NewsAPIBaseURL, cfg.RequestTimeout, lg.With("component", "newsapi"))

	var agent newsapi.AgentProvider
	if cfg.NewsTransport == config.TransportAgent {
		agent = newsapi.NewAgentClient(cfg.NewsAPIBaseURL, cfg.NewsAgentID, cfg.RequestTimeout, lg.With("component", "agent"))
		lg.Info("using agent transport", "agent_id", cfg.NewsAgentID)
	}

	chatHandler := handlers.NewChatHandler(newsClient, agent, cfg.NewsMaxArticles, lg)

	// Busy gate: Redis when configured so replicas agree, in-process otherwise
	var gate memory.Gate
	if cfg.RedisURL != "" {
		redisGate, err := memory.NewRedisGate(cfg.RedisURL, cfg.BusyTTL)
		if err != nil {
			return err
		}
		gate = redisGate
		lg.Info("✅ Redis busy gate connected", "busy_ttl", cfg.BusyTTL.String())
	}

	monitor := health.NewMonitor(newsClient, cfg.HealthInterval, lg)

	sessions := memory.NewManager(chatHandler, gate, monitor, lg)
	defer func() {
		if err := sessions.Close(); err != nil {
			lg.Warn("error closing session manager", "error", err)
		}
	}()

	// NATS transport
	natsTransport, err := transport.NewNATSTransport(cfg, sessions, lg)
	if err != nil {
		return err
	}
	defer natsTransport.Close()

	if err := natsTransport.Start(); err != nil {
		return err
	}

	monitor.OnChange(func(connected bool) {
		if err := natsTransport.PublishStatus(connected); err != nil {
			lg.Warn("failed to publish status", "error", err)
		}
	})

	httpServer := transport.NewHTTPServer(cfg.HTTPAddr, sessions, monitor, lg)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return monitor.Run(gCtx)
	})

	g.Go(func() error {
		return httpServer.Start()
	})

	if cfg.SessionTTL > 0 {
		g.Go(func() error {
			return sessions.RunEviction(gCtx, cfg.SessionTTL)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		lg.Info("🔄 shutting down gracefully...", "active_sessions", sessions.GetActiveSessionCount())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	lg.Info("✅ NewsBuddy chat service is running", "subject", cfg.NatsRequestSubject)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	lg.Info("👋 NewsBuddy chat service stopped")
	return nil
}
