// Package ingest provides the save pipeline: validate the media files,
// transcribe them, label the batch with topics, embed each transcript, and
// upsert one vector record per transcript into the vector store.
package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"clipindex/engine/domain"
	"clipindex/engine/semantic"
	"clipindex/pkg/fn"
	"clipindex/pkg/natsutil"
)

const (
	// SavedSubject is the NATS subject clip announcements are published to.
	SavedSubject = "clipindex.saved"
	// payloadExcerptRunes bounds the transcript excerpt kept in the payload.
	payloadExcerptRunes = 500
)

// Transcriber produces one transcript per media file.
type Transcriber interface {
	TranscribeAll(ctx context.Context, paths []string) ([]domain.Transcript, error)
}

// TopicExtractor labels a batch of transcripts, one label list per transcript.
type TopicExtractor interface {
	ExtractAll(ctx context.Context, transcripts []domain.Transcript) ([][]string, error)
}

// Embedder turns texts into vectors, one per text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Storer upserts vector records.
type Storer interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the save pipeline.
type Deps struct {
	Transcriber Transcriber
	Topics      TopicExtractor
	Embedder    Embedder
	Store       Storer
	NATS        *nats.Conn // optional, enables saved-clip announcements
	Logger      *slog.Logger
}

// --- Pipeline stages ---

// Validate checks every media file before anything is submitted remotely.
var Validate fn.Stage[[]string, []string] = func(_ context.Context, paths []string) fn.Result[[]string] {
	if len(paths) == 0 {
		return fn.Errf[[]string]("ingest: no files given")
	}
	if err := domain.ValidateMediaFiles(paths); err != nil {
		return fn.Err[[]string](err)
	}
	return fn.Ok(paths)
}

// NewTranscribe creates the stage that transcribes every file in order.
func NewTranscribe(t Transcriber) fn.Stage[[]string, []domain.Transcript] {
	return func(ctx context.Context, paths []string) fn.Result[[]domain.Transcript] {
		return fn.FromPair(t.TranscribeAll(ctx, paths))
	}
}

// NewTopics creates the stage that labels the whole batch in one call and
// attaches the labels to their transcripts.
func NewTopics(e TopicExtractor) fn.Stage[[]domain.Transcript, []domain.Transcript] {
	return func(ctx context.Context, transcripts []domain.Transcript) fn.Result[[]domain.Transcript] {
		labels, err := e.ExtractAll(ctx, transcripts)
		if err != nil {
			return fn.Err[[]domain.Transcript](err)
		}
		for i := range transcripts {
			transcripts[i].Topics = labels[i]
		}
		return fn.Ok(transcripts)
	}
}

// NewEmbed creates the stage that embeds every transcript's text.
func NewEmbed(e Embedder) fn.Stage[[]domain.Transcript, EmbeddedBatch] {
	return func(ctx context.Context, transcripts []domain.Transcript) fn.Result[EmbeddedBatch] {
		texts := make([]string, len(transcripts))
		for i, t := range transcripts {
			texts[i] = t.Text
		}
		vectors, err := e.EmbedTexts(ctx, texts)
		if err != nil {
			return fn.Err[EmbeddedBatch](err)
		}
		if len(vectors) != len(transcripts) {
			return fn.Errf[EmbeddedBatch]("ingest: got %d vectors for %d transcripts", len(vectors), len(transcripts))
		}
		return fn.Ok(EmbeddedBatch{Transcripts: transcripts, Vectors: vectors})
	}
}

// NewStore creates the stage that builds one record per transcript, upserts
// the batch, and announces each stored clip if a NATS connection is set.
func NewStore(s Storer, nc *nats.Conn, log *slog.Logger) fn.Stage[EmbeddedBatch, []string] {
	return func(ctx context.Context, batch EmbeddedBatch) fn.Result[[]string] {
		records := make([]semantic.VectorRecord, len(batch.Transcripts))
		for i, t := range batch.Transcripts {
			id, err := RecordID(t.Path)
			if err != nil {
				return fn.Err[[]string](err)
			}
			records[i] = semantic.VectorRecord{
				ID:        id,
				Embedding: batch.Vectors[i],
				Payload: map[string]any{
					"source":  filepath.Base(t.Path),
					"topics":  t.Topics,
					"excerpt": excerpt(t.Text, payloadExcerptRunes),
				},
			}
		}

		if err := s.Upsert(ctx, records); err != nil {
			return fn.Err[[]string](err)
		}

		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
			if nc == nil {
				continue
			}
			event := ClipSaved{
				ID:     r.ID,
				File:   filepath.Base(batch.Transcripts[i].Path),
				Topics: batch.Transcripts[i].Topics,
			}
			// Announcements are best effort; a stored clip stays stored.
			if err := natsutil.Publish(ctx, nc, SavedSubject, event); err != nil {
				log.Warn("ingest: announce failed", "id", r.ID, "error", err)
			}
		}
		return fn.Ok(ids)
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full save pipeline with all stages wired.
func NewPipeline(deps Deps) fn.Stage[[]string, []string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	// Compose: Validate → Transcribe → Topics → Embed → Store
	// with logging taps and spans between stages.
	validated := fn.Then(LoggedTap[[]string]("validate", log), fn.TracedStage("validate", Validate))
	transcribed := fn.Then(validated, fn.Then(LoggedTap[[]string]("transcribe", log), fn.TracedStage("transcribe", NewTranscribe(deps.Transcriber))))
	labelled := fn.Then(transcribed, fn.Then(LoggedTap[[]domain.Transcript]("topics", log), fn.TracedStage("topics", NewTopics(deps.Topics))))
	embedded := fn.Then(labelled, fn.Then(LoggedTap[[]domain.Transcript]("embed", log), fn.TracedStage("embed", NewEmbed(deps.Embedder))))
	stored := fn.Then(embedded, fn.Then(LoggedTap[EmbeddedBatch]("store", log), fn.TracedStage("store", NewStore(deps.Store, deps.NATS, log))))

	return stored
}

// RecordID derives the deterministic record ID for a media file: a UUIDv5
// over the file's content digest. Saving identical content upserts the same
// record instead of creating a duplicate.
func RecordID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("ingest: hash %s: %w", path, err)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, h.Sum(nil)).String(), nil
}

// excerpt truncates text to at most n runes.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
