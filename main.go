package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"

	"anonymous-relay-bot/bot"
	"anonymous-relay-bot/storage"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging (LevelInfo)")
	veryVerbose := flag.Bool("vv", false, "Enable very verbose logging (LevelDebug)")
	flag.Parse()

	setLogLevel(*verbose, *veryVerbose)

	if err := godotenv.Load(); err != nil {
		slog.Warn("main: Failed to load .env file", "error", err)
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		slog.Error("main: BOT_TOKEN environment variable is required")
		os.Exit(1)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data.sqlite"
		slog.Debug("main: Using default database path", "path", dbPath)
	}

	var logChannelID int64
	if raw := os.Getenv("LOG_CHANNEL_ID"); raw != "" {
		var err error
		logChannelID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Error("main: LOG_CHANNEL_ID must be a numeric chat id", "value", raw)
			os.Exit(1)
		}
	}
	adminURL := os.Getenv("ADMIN_URL")

	store, err := storage.New(dbPath)
	if err != nil {
		slog.Error("main: Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	api, err := telego.NewBot(token)
	if err != nil {
		slog.Error("main: Failed to initialize Telegram client", "error", err)
		os.Exit(1)
	}

	slog.Info("main: Starting bot...")
	if err := bot.New(api, store, logChannelID, adminURL).Run(); err != nil {
		slog.Error("main: Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

// setLogLevel configures the logging level based on the provided flags
func setLogLevel(verbose, veryVerbose bool) {
	logLevel := slog.LevelWarn // Default level
	if veryVerbose {
		logLevel = slog.LevelDebug
	} else if verbose {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
