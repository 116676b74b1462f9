package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/llm/gemini"
	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/persistence/pgvector"
	"github.com/flarexio/ragblade/persistence/qdrant"
	"github.com/flarexio/ragblade/vector"

	mcpE "github.com/flarexio/ragblade/mcp"
	httpT "github.com/flarexio/ragblade/transport/http"
	natsT "github.com/flarexio/ragblade/transport/nats"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "ragblade",
		Usage: "Retrieval-augmented question answering over your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to an optional YAML config file",
				Sources: cli.EnvVars("CONFIG"),
			},
			&cli.StringFlag{
				Name:    "google-api-key",
				Usage:   "Google Gemini API key",
				Sources: cli.EnvVars("GOOGLE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Vector backend: qdrant, memory or pgvector",
				Sources: cli.EnvVars("VECTOR_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "qdrant-url",
				Usage:   "Qdrant server URL",
				Value:   ragblade.DefaultQdrantURL,
				Sources: cli.EnvVars("QDRANT_URL"),
			},
			&cli.StringFlag{
				Name:    "qdrant-api-key",
				Usage:   "Qdrant API key",
				Sources: cli.EnvVars("QDRANT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string for the pgvector backend",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port",
				Value:   ragblade.DefaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL, empty to disable the NATS transport",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "nats-topic",
				Usage: "Subject prefix of the NATS service",
				Value: "ragblade",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log JSON lines instead of the development format",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func loadConfig(cmd *cli.Command) (ragblade.Config, error) {
	cfg := ragblade.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		c, err := ragblade.LoadConfig(path)
		if err != nil {
			return cfg, err
		}

		cfg = c
	}

	cfg.GoogleAPIKey = cmd.String("google-api-key")
	cfg.Gemini.APIKey = cfg.GoogleAPIKey

	if cmd.IsSet("port") || cfg.Port == 0 {
		cfg.Port = int(cmd.Int("port"))
	}

	if backend := cmd.String("backend"); backend != "" {
		cfg.Vector.Backend = vector.Backend(backend)
	}

	if cmd.IsSet("qdrant-url") || cfg.Vector.URL == "" {
		cfg.Vector.URL = cmd.String("qdrant-url")
	}

	if key := cmd.String("qdrant-api-key"); key != "" {
		cfg.Vector.APIKey = key
	}

	if dsn := cmd.String("database-url"); dsn != "" {
		cfg.Vector.DSN = dsn
	}

	cfg.Vector = cfg.Vector.WithDefaults()

	// the collection is sized by the embedding model
	cfg.Vector.Dimension = cfg.Gemini.WithDefaults().Dimension

	return cfg, cfg.Validate()
}

func newStore(ctx context.Context, cfg vector.Config) (vector.Store, error) {
	switch cfg.Backend {
	case vector.BackendQdrant:
		return qdrant.NewQdrantStore(cfg)

	case vector.BackendMemory:
		return chromem.NewChromemStore(cfg)

	case vector.BackendPgvector:
		return pgvector.NewPostgresStore(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	var (
		log *zap.Logger
		err error
	)

	if cmd.Bool("log-json") {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}

	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	llm, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg.Vector)
	if err != nil {
		return err
	}

	collection := vector.New(store, llm, cfg.Vector)

	{
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Store.Duration())
		err := collection.EnsureCollection(ctx)
		cancel()

		if err != nil {
			// retried on first use
			log.Warn("vector store not ready", zap.Error(err))
		}
	}

	svc := ragblade.NewService(cfg, collection, llm)
	defer svc.Close()

	svc = ragblade.LoggingMiddleware(log)(svc)

	endpoints := ragblade.NewEndpointSet(svc)

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		opts := []nats.Option{
			nats.Name("ragblade"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ragblade",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(cmd.String("nats-topic"))
		natsT.AddEndpoints(root, endpoints, cfg.Timeouts)

		log.Info("nats transport enabled", zap.String("topic", cmd.String("nats-topic")))
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints, cfg.Timeouts)
	httpT.AddStreamableRouters(r, mcpE.NewEndpoints(svc))

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	return serve(log, srv, quit)
}

// serve runs srv until a signal arrives on quit or the listener fails.
func serve(log *zap.Logger, srv *http.Server, quit <-chan os.Signal) error {
	errs := make(chan error, 1)

	go func() {
		log.Info("http server started", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("http server: %w", err)

	case sign := <-quit:
		log.Info("graceful shutdown", zap.String("signal", sign.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
