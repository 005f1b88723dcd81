package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gvillanueva/opsfolio/submitter"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portfolio",
		Short:        "Portfolio site and contact form for an operations specialist",
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a TOML config file")
	root.AddCommand(newServeCmd(), newSendCmd())
	return root
}

// loadConfig layers defaults, the config file, the environment and finally
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, cfg *Config) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		if !FileExists(cfgFile) {
			return fmt.Errorf("config file %s not found", cfgFile)
		}
		fc, err := LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func newServeCmd() *cobra.Command {
	cfg := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web site",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	f.StringVar(&cfg.Mode, "mode", cfg.Mode, "gin mode: debug, release or test")
	f.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	f.StringVar(&cfg.ContentFile, "content", cfg.ContentFile, "TOML file overriding the built-in site copy")
	f.StringVar(&cfg.SiteURL, "site-url", cfg.SiteURL, "public URL of the site")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origins", cfg.CORSOrigins, "origins allowed to call the API")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this rotated file")
	f.StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "SMTP server host")
	f.IntVar(&cfg.SMTPPort, "smtp-port", cfg.SMTPPort, "SMTP server port")
	f.StringVar(&cfg.NotificationEmail, "notification-email", cfg.NotificationEmail, "address receiving contact notifications")
	f.DurationVar(&cfg.VisitorRetention, "visitor-retention", cfg.VisitorRetention, "how long visitor metrics are kept")
	return cmd
}

func runServer(ctx context.Context, cfg Config) error {
	gin.SetMode(cfg.Mode)

	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		log.Warn().Err(err).Msg("log file unavailable, logging to stderr only")
	}

	profile, err := LoadProfile(cfg.ContentFile)
	if err != nil {
		return err
	}

	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := newServer(cfg, profile, store, newMailer(cfg, log), log)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if _, err := srv.cleanupVisitors(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("startup visitor cleanup failed")
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("mode", cfg.Mode).Msg("serving HTTP")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newSendCmd() *cobra.Command {
	cfg := DefaultConfig()
	var msg submitter.Message

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a contact message to a running site",
		Example: `  portfolio send --name "John Doe" --email john@company.com --message "Let's talk"
  BACKEND_URL=https://example.com portfolio send --name Jane --email jane@acme.io --company Acme --message Hi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg); err != nil {
				return err
			}

			log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
				Level(parseLogLevel(cfg.LogLevel)).With().Timestamp().Logger()

			client := &http.Client{Timeout: cfg.HTTPTimeout}
			form := submitter.New(cfg.BackendURL,
				submitter.WithHTTPClient(client),
				submitter.WithNotifier(submitter.NewWriterNotifier(cmd.OutOrStdout())),
				submitter.WithLogger(log),
			)
			form.Fill(msg)

			toast, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if toast.Failed() {
				return errors.New("submission failed")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "base URL of the site backend")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "request timeout, 0 for none")
	f.StringVar(&msg.Name, "name", "", "your name (required)")
	f.StringVar(&msg.Email, "email", "", "your email address (required)")
	f.StringVar(&msg.Company, "company", "", "company or business name")
	f.StringVar(&msg.Message, "message", "", "the message (required)")
	return cmd
}
