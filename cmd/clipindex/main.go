// Command clipindex transcribes media clips into a hosted vector store and
// searches it for the nearest neighbours of a query clip.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sashabaranov/go-openai"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clipindex/engine/embed"
	"clipindex/engine/ingest"
	"clipindex/engine/search"
	"clipindex/engine/semantic"
	"clipindex/engine/topics"
	"clipindex/engine/transcribe"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// A .env in the working directory is optional.
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "clipindex",
		Usage:  "Transcribe media clips into a vector store and search them by similarity",
		Before: warmUp,
		Commands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Transcribe media files and store their embeddings",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Media files to transcribe and store",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "announce",
						Usage: "NATS URL to announce saved clips on (optional)",
					},
				},
				Action: runSave,
			},
			{
				Name:  "search",
				Usage: "Find stored clips nearest to a query file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Query media file",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "metadata",
						Aliases: []string{"m"},
						Usage:   "Restrict results to clips matching any of these topic labels",
					},
					&cli.IntFlag{
						Name:    "top_k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   2,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Search output file (JSON)",
						Value:   "output.json",
					},
				},
				Action: runSearch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("clipindex failed", "error", err)
		os.Exit(1)
	}
}

// warmUp reports every missing required environment variable before any
// remote call is made.
func warmUp(*cli.Context) error {
	var missing []string
	for _, v := range []string{"OPENAI_API_KEY", "QDRANT_ADDR"} {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("environment is not ready, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// newOpenAIClient builds the hosted API client with a traced transport.
func newOpenAIClient() *openai.Client {
	config := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	config.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return openai.NewClientWithConfig(config)
}

func newStore() (*semantic.VectorStore, error) {
	return semantic.New(
		os.Getenv("QDRANT_ADDR"),
		os.Getenv("QDRANT_API_KEY"),
		envOr("QDRANT_COLLECTION", "clips"),
	)
}

func runSave(c *cli.Context) error {
	logger := slog.Default()
	client := newOpenAIClient()

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureCollection(c.Context, embed.Dimensions); err != nil {
		return err
	}

	var nc *nats.Conn
	if url := c.String("announce"); url != "" {
		nc, err = nats.Connect(url)
		if err != nil {
			return fmt.Errorf("connect nats %s: %w", url, err)
		}
		defer nc.Drain()
	}

	pipeline := ingest.NewPipeline(ingest.Deps{
		Transcriber: transcribe.New(client, logger),
		Topics:      topics.New(client, os.Getenv("TOPIC_MODEL"), logger),
		Embedder:    embed.New(client, logger),
		Store:       store,
		NATS:        nc,
		Logger:      logger,
	})

	ids, err := pipeline(c.Context, c.StringSlice("file")).Unwrap()
	if err != nil {
		return err
	}
	logger.Info("save completed", "clips", len(ids))
	return nil
}

func runSearch(c *cli.Context) error {
	logger := slog.Default()
	client := newOpenAIClient()

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	service := search.New(
		transcribe.New(client, logger),
		embed.New(client, logger),
		store,
		logger,
	)

	_, err = service.Run(c.Context, c.String("file"), search.Options{
		TopK:   c.Int("top_k"),
		Topics: c.StringSlice("metadata"),
		Output: c.String("output"),
	})
	return err
}
