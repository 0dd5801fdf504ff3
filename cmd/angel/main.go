package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/venturelaunch/angel/internal/api"
	"github.com/venturelaunch/angel/internal/flow"
	"github.com/venturelaunch/angel/internal/genai"
	"github.com/venturelaunch/angel/internal/lockfile"
	"github.com/venturelaunch/angel/internal/messaging"
	"github.com/venturelaunch/angel/internal/scheduler"
	"github.com/venturelaunch/angel/internal/store"
	"github.com/venturelaunch/angel/internal/twiliosms"
	"github.com/venturelaunch/angel/internal/util"
	"github.com/venturelaunch/angel/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Angel state data
	DefaultStateDir = "/var/lib/angel"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "angel.db"
	// DefaultReminderCron fires the stale-question reminder sweep hourly
	DefaultReminderCron = "0 * * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release instance lock", "error", err)
		}
	}()

	slog.Info("Bootstrapping Angel with configured modules")
	if err := run(flags); err != nil {
		slog.Error("Angel failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Angel exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	OpenAIKey        string
	APIAddr          string
	Backend          string
	NumericCode      bool
	ReminderCron     string
	TwilioSID        string
	TwilioToken      string
	TwilioFromNumber string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput     *string
	numeric      *bool
	stateDir     *string
	dbDSN        *string
	openaiKey    *string
	apiAddr      *string
	backend      *string
	reminderCron *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("ANGEL_STATE_DIR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		APIAddr:          os.Getenv("API_ADDR"),
		Backend:          os.Getenv("MESSAGING_BACKEND"),
		NumericCode:      util.ParseBoolEnv("ANGEL_NUMERIC_CODE", false),
		ReminderCron:     os.Getenv("REMINDER_SCHEDULE"),
		TwilioSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ANGEL_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.Backend == "" {
		config.Backend = "whatsapp"
	}
	if config.ReminderCron == "" {
		config.ReminderCron = DefaultReminderCron
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ANGEL_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"MESSAGING_BACKEND", config.Backend,
		"REMINDER_SCHEDULE", config.ReminderCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:     flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:      flag.Bool("numeric-code", config.NumericCode, "use numeric WhatsApp login code instead of QR code (overrides $ANGEL_NUMERIC_CODE)"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for Angel data (overrides $ANGEL_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		backend:      flag.String("messaging-backend", config.Backend, "messaging backend: whatsapp or twilio (overrides $MESSAGING_BACKEND)"),
		reminderCron: flag.String("reminder-cron", config.ReminderCron, "cron schedule for stale-question reminders (overrides $REMINDER_SCHEDULE)"),
	}

	flag.Parse()

	// Follow a state-dir override when the DSN still points at the default
	// SQLite location.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"backend", *flags.backend,
		"reminderCron", *flags.reminderCron)

	return flags
}

// run wires every module together and serves until interrupted.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()

	stateManager := flow.NewStoreBasedStateManager(st)
	controller := flow.NewPhaseController(stateManager)
	journey := flow.NewJourney(stateManager, st, buildQuestionSource(flags))

	msgService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	reminders := scheduler.NewReminderJob(st, stateManager, msgService, 24*time.Hour)
	if err := sched.AddJob(*flags.reminderCron, func() { reminders.Run(ctx) }); err != nil {
		return err
	}

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(api.Dependencies{
		Store:        st,
		MsgService:   msgService,
		StateManager: stateManager,
		Journey:      journey,
		Controller:   controller,
	}, apiOpts...)

	return server.Run(ctx)
}

// buildStore selects the session store backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildQuestionSource returns the GenAI-backed advisor when an API key is
// available, or nil to fall back to the scripted questions.
func buildQuestionSource(flags Flags) flow.QuestionSource {
	if *flags.openaiKey == "" {
		slog.Info("No OpenAI API key configured, using scripted questions only")
		return nil
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Warn("Failed to initialize GenAI client, using scripted questions only", "error", err)
		return nil
	}
	return genai.NewAdvisor(client)
}

// buildMessagingService selects the outbound messaging backend.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch *flags.backend {
	case "twilio":
		client, err := twiliosms.NewClient(
			twiliosms.WithAccountSID(os.Getenv("TWILIO_ACCOUNT_SID")),
			twiliosms.WithAuthToken(os.Getenv("TWILIO_AUTH_TOKEN")),
			twiliosms.WithFromNumber(os.Getenv("TWILIO_FROM_NUMBER")),
		)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Twilio SMS messaging backend")
		return messaging.NewTwilioService(client), nil
	default:
		var waOpts []whatsapp.Option
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		waOpts = append(waOpts, whatsapp.WithDBDSN(filepath.Join(*flags.stateDir, "whatsmeow.db")))
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		slog.Info("Using WhatsApp messaging backend")
		return messaging.NewWhatsAppService(client), nil
	}
}
