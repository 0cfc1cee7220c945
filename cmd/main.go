package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"crypto-telegram-bot/config"
	"crypto-telegram-bot/internal/alert"
	"crypto-telegram-bot/internal/chart"
	"crypto-telegram-bot/internal/commands"
	"crypto-telegram-bot/internal/database"
	"crypto-telegram-bot/internal/metrics"
	"crypto-telegram-bot/internal/price"
	"crypto-telegram-bot/internal/telegram"
	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/translation"
	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("lang"))
	log.Infof("Using language %s", translation.GetLanguage())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botMetrics := metrics.New(prometheus.DefaultRegisterer)

	db, err := database.Open(config.GetString("database_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	botMetrics.Restore(db)

	persister, closer, err := newPersister(ctx, db)
	if err != nil {
		log.Fatalf("Failed to initialize alert storage: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	store := alert.NewStore(persister)
	if err := store.Load(); err != nil {
		log.Fatalf("Failed to load alerts: %v", err)
	}

	currency := config.GetString("currency")
	source := newPriceSource(currency)
	assets := price.LoadAssets(ctx, source, filepath.Join(config.GetString("data_dir"), "valid_names.txt"), config.GetAliases("aliases"))

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	renderer := chart.NewRenderer(source, chart.RendererConfig{Currency: currency})
	dispatcher := commands.NewDispatcher(store, source, assets, renderer, bot, commands.Config{
		Currency: currency,
		Metrics:  botMetrics,
	})

	evaluator := alert.NewEvaluator(store, source, bot, alert.EvaluatorConfig{
		Currency: currency,
		Interval: config.GetDuration("alert_interval", alert.DefaultInterval),
		Metrics:  botMetrics,
	})
	evaluator.Start(ctx)

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}
	go handleUpdates(ctx, dispatcher, botMetrics, updates)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				botMetrics.Save(db)
			}
		}
	}()

	server := launchMetricsAndHealthServer(config.GetInt("metrics_port"))

	<-ctx.Done()
	log.Info("Shutting down...")
	bot.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to stop metrics server: %v", err)
	}

	botMetrics.Save(db)
	log.Info("Metrics saved, bye")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if logFile := config.GetString("log_file"); logFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}
	log.Debug("Starting telegram bot...")
}

// newPersister picks the alert storage backend. The returned closer is nil
// when the backend shares the lifetime of something already closed by main.
func newPersister(ctx context.Context, db *database.DB) (alert.Persister, io.Closer, error) {
	switch backend := strings.ToLower(config.GetString("storage")); backend {
	case "", "file":
		return alert.NewFilePersister(config.GetString("data_dir")), nil, nil
	case "sqlite":
		return db, nil, nil
	case "buntdb":
		p, err := alert.NewBuntPersister(config.GetString("buntdb_path"))
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "redis":
		p := alert.NewRedisPersister(redis.NewClient(&redis.Options{
			Addr: config.GetString("redis_addr"),
		}), config.GetString("redis_prefix"))
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func newPriceSource(currency string) price.Source {
	timeout := config.GetDuration("http_timeout", 10*time.Second)

	switch provider := strings.ToLower(config.GetString("price_provider")); provider {
	case "coinpaprika":
		return price.NewCoinpaprika(price.CoinpaprikaConfig{
			APIKey:   config.GetString("api_pro_key"),
			Currency: currency,
			Timeout:  timeout,
		})
	default:
		if provider != "coingecko" {
			log.Warnf("Unknown price provider %q, using coingecko", provider)
		}
		return price.NewCoinGecko(price.CoinGeckoConfig{
			BaseURL:  config.GetString("coingecko_url"),
			APIKey:   config.GetString("coingecko_api_key"),
			Currency: currency,
			Timeout:  timeout,
		})
	}
}

func handleUpdates(ctx context.Context, dispatcher *commands.Dispatcher, botMetrics *metrics.Metrics, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			log.Debug("Received non-message or non-text update")
			continue
		}
		if log.IsLevelEnabled(log.DebugLevel) {
			log.Debugf("Received message: %s", spew.Sdump(update.Message.Chat, update.Message.Text))
		}

		conversation := telegram.Conversation(update.Message.Chat.ID)
		botMetrics.MessageHandled(conversation)

		go handleCommand(ctx, dispatcher, conversation, update.Message.Text)
	}
}

func handleCommand(ctx context.Context, dispatcher *commands.Dispatcher, conversation types.ConversationID, text string) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	dispatcher.Handle(ctx, conversation, text)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Launching metrics and health endpoint on :%d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()
	return server
}
