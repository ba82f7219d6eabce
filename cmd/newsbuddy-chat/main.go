package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/avvvet/newsbuddy/internal/config"
	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/health"
	"github.com/avvvet/newsbuddy/internal/logger"
	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

var (
	baseURL   string
	mode      string
	timeout   time.Duration
	stream    bool
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "newsbuddy-chat",
	Short: "Chat with the news assistant from the terminal",
	Long: `newsbuddy-chat opens an interactive chat with the news assistant.

Ask in plain language, for example:
  Any tech news today?
  Analyze the latest business trends
  给我5条体育新闻

Type a number to send one of the suggested questions, /history to print the
conversation, /status to check the connection and /quit to leave.`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	addFlags(rootCmd)
}

func addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&baseURL, "base-url", "", "news service base URL (default from NEWS_API_BASE_URL)")
	cmd.Flags().StringVar(&mode, "transport", "", "news service transport: rest or agent (default from NEWS_TRANSPORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (default from REQUEST_TIMEOUT)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print replies as they arrive")
	cmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "log debug output to stderr")
}

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs go to stderr only in debug mode so they don't interleave with the chat.
	lg := logger.Discard()
	if cfg.DebugMode {
		lg = logger.NewWithWriter(os.Stderr, cfg.LogLevel, true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newsClient := newsapi.NewClient(cfg.NewsAPIBaseURL, cfg.RequestTimeout, lg)

	var agent newsapi.AgentProvider
	if cfg.NewsTransport == config.TransportAgent {
		agent = newsapi.NewAgentClient(cfg.NewsAPIBaseURL, cfg.NewsAgentID, cfg.RequestTimeout, lg)
	}

	monitor := health.NewMonitor(newsClient, cfg.HealthInterval, lg)
	monitor.Check(ctx)
	go func() { _ = monitor.Run(ctx) }()

	chatHandler := handlers.NewChatHandler(newsClient, agent, cfg.NewsMaxArticles, lg)
	sessions := memory.NewManager(chatHandler, nil, monitor, lg)

	r := newREPL(sessions.NewSession(ctx), monitor, cmd.InOrStdin(), cmd.OutOrStdout(), newsClient.BaseURL(), stream)
	return r.run(ctx)
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.NewsAPIBaseURL = baseURL
	}
	if flags.Changed("transport") {
		cfg.NewsTransport = strings.ToLower(mode)
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = timeout
	}
	if debugMode {
		cfg.DebugMode = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
