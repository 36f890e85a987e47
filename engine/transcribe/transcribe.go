// Package transcribe wraps the hosted speech-to-text API. Submitting a file
// is a blocking call; the package's only extra work is splitting media that
// exceeds the service's upload limit into segments first.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"clipindex/engine/domain"
)

const (
	// maxUploadMB is the service's per-file upload limit.
	maxUploadMB = 25
	// segmentSeconds is the ffmpeg segment length for oversized files.
	segmentSeconds = "1200"
)

// audioAPI is the slice of the hosted client the transcriber needs.
type audioAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Client submits media files for transcription and waits for the text.
type Client struct {
	api     audioAPI
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a transcription client around the hosted API.
func New(api audioAPI, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  logger,
	}
}

// Transcribe submits one media file and blocks until the transcript text is
// available. Oversized files are segmented and the segment transcripts are
// concatenated in order.
func (c *Client) Transcribe(ctx context.Context, path string) (domain.Transcript, error) {
	files, cleanup, err := c.segmentIfNeeded(ctx, path)
	if err != nil {
		return domain.Transcript{}, err
	}
	defer cleanup()

	var text strings.Builder
	for _, file := range files {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Transcript{}, err
		}
		c.logger.Info("submitting for transcription", "file", filepath.Base(file))
		response, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			FilePath: file,
		})
		if err != nil {
			return domain.Transcript{}, fmt.Errorf("transcribe: %s: %w", path, err)
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(strings.TrimSpace(response.Text))
	}

	transcript := domain.Transcript{Path: path, Text: text.String()}
	if transcript.Text == "" {
		return domain.Transcript{}, domain.NewValidationError(path, domain.ErrEmptyTranscript)
	}
	return transcript, nil
}

// TranscribeAll transcribes every file in order, one blocking call at a time.
func (c *Client) TranscribeAll(ctx context.Context, paths []string) ([]domain.Transcript, error) {
	transcripts := make([]domain.Transcript, 0, len(paths))
	for _, p := range paths {
		t, err := c.Transcribe(ctx, p)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, nil
}

// segmentIfNeeded returns the list of files to submit for path. Files under
// the upload limit pass through untouched; larger ones are split into
// segments in a temp directory which cleanup removes.
func (c *Client) segmentIfNeeded(ctx context.Context, path string) ([]string, func(), error) {
	noop := func() {}

	info, err := os.Stat(path)
	if err != nil {
		return nil, noop, fmt.Errorf("transcribe: stat %s: %w", path, err)
	}
	sizeMB := info.Size() / 1000 / 1000
	if sizeMB <= maxUploadMB {
		return []string{path}, noop, nil
	}

	c.logger.Info("file exceeds upload limit, segmenting", "file", filepath.Base(path), "size_mb", sizeMB)

	dir, err := os.MkdirTemp("", "clipindex-segments-")
	if err != nil {
		return nil, noop, fmt.Errorf("transcribe: temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	pattern := filepath.Join(dir, "segment-%03d"+filepath.Ext(path))
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "segment",
		"-segment_time", segmentSeconds,
		"-c", "copy",
		pattern,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("transcribe: segment %s: %w: %s", path, err, output)
	}

	segments, err := gatherSegments(dir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return segments, cleanup, nil
}

// gatherSegments lists segment files in a directory in playback order.
func gatherSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read segment dir: %w", err)
	}
	var segments []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "segment-") {
			segments = append(segments, filepath.Join(dir, entry.Name()))
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcribe: no segments produced in %s", dir)
	}
	sort.Strings(segments)
	return segments, nil
}
