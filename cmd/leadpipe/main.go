package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arenaleads/leadpipe/internal/api"
	"github.com/arenaleads/leadpipe/internal/bot"
	"github.com/arenaleads/leadpipe/internal/config"
	"github.com/arenaleads/leadpipe/internal/greenapi"
	"github.com/arenaleads/leadpipe/internal/messaging"
	"github.com/arenaleads/leadpipe/internal/store"
	"github.com/arenaleads/leadpipe/internal/twiliowhatsapp"
	"github.com/arenaleads/leadpipe/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Flags holds command line flag values
type Flags struct {
	configPath      *string
	addr            *string
	dbDSN           *string
	channel         *string
	authorizedPhone *string
	qrOutput        *string
	numeric         *bool
}

func main() {
	// Bootstrap logging at info level; reconfigured once the config is loaded.
	initializeLogger("info")

	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	flags := parseCommandLineFlags()

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	// Flags win over file and environment values, so validation runs after them.
	applyFlagOverrides(cfg, flags)
	if err := config.Normalize(cfg); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	initializeLogger(cfg.LogLevel)

	st, err := buildStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	msg, err := buildMessagingService(cfg, flags)
	if err != nil {
		slog.Error("Failed to initialize messaging channel", "error", err, "channel", cfg.Channel)
		os.Exit(1)
	}

	dispatcher := bot.NewDispatcher(st, msg, bot.WithAuthorizedPhone(cfg.AuthorizedPhone))
	server := api.NewServer(st, dispatcher, api.WithAddr(cfg.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping LeadPipe", "channel", cfg.Channel, "addr", cfg.Addr, "dsn_set", cfg.DatabaseDSN != "")
	if err := server.Run(ctx); err != nil {
		slog.Error("LeadPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LeadPipe exited successfully")
}

// initializeLogger sets up structured logging at the given level.
func initializeLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// parseCommandLineFlags parses command line arguments.
func parseCommandLineFlags() Flags {
	flags := Flags{
		configPath:      flag.String("config", "", "path to YAML config file (optional)"),
		addr:            flag.String("addr", "", "API server address (overrides $LEADPIPE_ADDR)"),
		dbDSN:           flag.String("db-dsn", "", "database DSN for the lead store (overrides $DATABASE_URL)"),
		channel:         flag.String("channel", "", "delivery channel: greenapi, whatsmeow or twilio (overrides $LEADPIPE_CHANNEL)"),
		authorizedPhone: flag.String("authorized-phone", "", "restrict processing to one phone number (overrides $AUTHORIZED_PHONE)"),
		qrOutput:        flag.String("qr-output", "", "path to write the whatsmeow login QR code"),
		numeric:         flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"config", *flags.configPath,
		"addr", *flags.addr,
		"dbDSN_set", *flags.dbDSN != "",
		"channel", *flags.channel,
		"authorizedPhone_set", *flags.authorizedPhone != "",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric)

	return flags
}

// applyFlagOverrides lets explicit flags win over file and environment values.
func applyFlagOverrides(cfg *config.Config, flags Flags) {
	if *flags.addr != "" {
		cfg.Addr = *flags.addr
	}
	if *flags.dbDSN != "" {
		cfg.DatabaseDSN = *flags.dbDSN
	}
	if *flags.channel != "" {
		cfg.Channel = *flags.channel
	}
	if *flags.authorizedPhone != "" {
		cfg.AuthorizedPhone = *flags.authorizedPhone
	}
}

// buildStore selects the store backend from the DSN. No DSN keeps everything
// in memory, which is fine for development but loses state on restart.
func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseDSN == "" {
		slog.Warn("No database DSN provided, using in-memory store; state will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DatabaseDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(cfg.DatabaseDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", cfg.DatabaseDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(cfg.DatabaseDSN))
}

// buildMessagingService constructs the configured delivery channel.
func buildMessagingService(cfg *config.Config, flags Flags) (messaging.Service, error) {
	switch cfg.Channel {
	case config.ChannelWhatsmeow:
		var waOpts []whatsapp.Option
		if cfg.Whatsmeow.DBDSN != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(cfg.Whatsmeow.DBDSN))
		}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		} else if cfg.Whatsmeow.QRPath != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(cfg.Whatsmeow.QRPath))
		}
		if *flags.numeric || cfg.Whatsmeow.NumericCode {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil

	case config.ChannelTwilio:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(cfg.Twilio.AccountSID),
			twiliowhatsapp.WithAuthToken(cfg.Twilio.AuthToken),
			twiliowhatsapp.WithFromWhats(cfg.Twilio.FromWhats),
		)
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil

	default:
		gaOpts := []greenapi.Option{
			greenapi.WithInstanceID(cfg.GreenAPI.InstanceID),
			greenapi.WithAPIToken(cfg.GreenAPI.APIToken),
		}
		if cfg.GreenAPI.BaseURL != "" {
			gaOpts = append(gaOpts, greenapi.WithBaseURL(cfg.GreenAPI.BaseURL))
		}
		client, err := greenapi.NewClient(gaOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewGreenAPIService(client), nil
	}
}
