package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ankigen/internal/api"
	"ankigen/internal/config"
	"ankigen/internal/export"
	"ankigen/internal/logger"
	"ankigen/internal/notify"
	"ankigen/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ankigen",
		Short:         "Generate Anki flashcard decks with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newGenerateCmd())
	return root
}

type app struct {
	cfg       config.Config
	log       *zap.Logger
	generator *services.CardGenerator
	sink      *export.FileSink
	exporter  *export.Exporter
}

func loadApp(exportDir string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if exportDir != "" {
		cfg.ExportDir = exportDir
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set; requests must supply their own key")
	}

	sink, err := export.NewFileSink(cfg.ExportDir)
	if err != nil {
		return nil, err
	}

	generator := services.NewCardGenerator(
		services.NewOpenAIClientFactory(cfg.OpenAIEndpoint),
		cfg.OpenAIModel,
		cfg.CompletionTimeout,
		log,
	)

	return &app{
		cfg:       cfg,
		log:       log,
		generator: generator,
		sink:      sink,
		exporter:  export.NewExporter(sink, log),
	}, nil
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			if port == "" {
				port = a.cfg.Port
			}

			server := api.NewServer(a.generator, a.exporter, a.sink, a.cfg.OpenAIKey, a.log)
			srv := newHTTPServer(port, server.Handler())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (defaults to PORT)")
	return cmd
}

func newHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		subject       string
		topicCount    int
		cardsPerTopic int
		preferences   string
		apiKey        string
		outDir        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deck and export it as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateGenerateFlags(subject, preferences, topicCount, cardsPerTopic); err != nil {
				return err
			}
			a, err := loadApp(outDir)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			if apiKey == "" {
				apiKey = a.cfg.OpenAIKey
			}

			out := cmd.OutOrStdout()
			notifier := notify.Multi(notify.NewWriter(cmd.ErrOrStderr()), notify.NewLog(a.log))
			progress := func(step, message string, current, total int) {
				a.log.Debug("progress",
					zap.String("step", step),
					zap.String("message", message),
					zap.Int("current", current),
					zap.Int("total", total))
			}

			rows, err := a.generator.GenerateWithProgress(cmd.Context(), services.GenerateRequest{
				APIKey:        apiKey,
				Subject:       subject,
				TopicCount:    topicCount,
				CardsPerTopic: cardsPerTopic,
				Preferences:   preferences,
			}, notifier, progress)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "generated %d cards\n", len(rows))

			artifact, err := a.exporter.Export(rows, notifier)
			if err != nil {
				return err
			}
			if artifact != nil {
				_, _ = fmt.Fprintf(out, "wrote %s\n", artifact.Location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "subject to study")
	cmd.Flags().IntVar(&topicCount, "topics", 2, "number of topics (2-20)")
	cmd.Flags().IntVar(&cardsPerTopic, "cards", 2, "cards per topic (2-30)")
	cmd.Flags().StringVar(&preferences, "preferences", "", "learning preferences passed to the model")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for the exported CSV (defaults to EXPORT_DIR)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

var validate = validator.New()

func validateGenerateFlags(subject, preferences string, topicCount, cardsPerTopic int) error {
	if err := validate.Var(strings.TrimSpace(subject), "required,max=200"); err != nil {
		return errors.New("--subject must be 1 to 200 characters")
	}
	if err := validate.Var(strings.TrimSpace(preferences), "max=1000"); err != nil {
		return errors.New("--preferences must be at most 1000 characters")
	}
	if err := validate.Var(topicCount, "min=2,max=20"); err != nil {
		return fmt.Errorf("--topics must be between 2 and 20, got %d", topicCount)
	}
	if err := validate.Var(cardsPerTopic, "min=2,max=30"); err != nil {
		return fmt.Errorf("--cards must be between 2 and 30, got %d", cardsPerTopic)
	}
	return nil
}
