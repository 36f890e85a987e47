package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sashabaranov/go-openai"

	"clipindex/engine/domain"
)

type mockAudio struct {
	texts map[string]string // by base name
	files []string
	err   error
}

func (m *mockAudio) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.files = append(m.files, req.FilePath)
	if m.err != nil {
		return openai.AudioResponse{}, m.err
	}
	return openai.AudioResponse{Text: m.texts[filepath.Base(req.FilePath)]}, nil
}

func mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe_SmallFilePassesThrough(t *testing.T) {
	path := mediaFile(t, "talk.mp3")
	api := &mockAudio{texts: map[string]string{"talk.mp3": " hello world "}}
	c := New(api, nil)

	transcript, err := c.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Path != path {
		t.Errorf("path = %q, want %q", transcript.Path, path)
	}
	if transcript.Text != "hello world" {
		t.Errorf("text = %q", transcript.Text)
	}
	if len(api.files) != 1 || api.files[0] != path {
		t.Errorf("submitted files = %v", api.files)
	}
}

func TestTranscribe_EmptyTranscript(t *testing.T) {
	path := mediaFile(t, "silent.mp3")
	c := New(&mockAudio{texts: map[string]string{}}, nil)

	_, err := c.Transcribe(context.Background(), path)
	if !errors.Is(err, domain.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	path := mediaFile(t, "talk.mp3")
	c := New(&mockAudio{err: errors.New("upload failed")}, nil)

	if _, err := c.Transcribe(context.Background(), path); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	c := New(&mockAudio{}, nil)
	if _, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscribeAll_Order(t *testing.T) {
	a := mediaFile(t, "a.mp3")
	b := mediaFile(t, "b.mp3")
	api := &mockAudio{texts: map[string]string{"a.mp3": "first", "b.mp3": "second"}}
	c := New(api, nil)

	transcripts, err := c.TranscribeAll(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transcripts) != 2 {
		t.Fatalf("transcripts = %d, want 2", len(transcripts))
	}
	if transcripts[0].Text != "first" || transcripts[1].Text != "second" {
		t.Errorf("transcripts = %+v", transcripts)
	}
}

func TestTranscribeAll_StopsOnError(t *testing.T) {
	good := mediaFile(t, "a.mp3")
	missing := filepath.Join(t.TempDir(), "nope.mp3")
	api := &mockAudio{texts: map[string]string{"a.mp3": "first"}}
	c := New(api, nil)

	if _, err := c.TranscribeAll(context.Background(), []string{good, missing}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGatherSegments_SortedOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment-002.mp3", "segment-000.mp3", "segment-001.mp3", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	segments, err := gatherSegments(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(segments))
	}
	for i, want := range []string{"segment-000.mp3", "segment-001.mp3", "segment-002.mp3"} {
		if filepath.Base(segments[i]) != want {
			t.Errorf("segments[%d] = %s, want %s", i, segments[i], want)
		}
	}
}

func TestGatherSegments_Empty(t *testing.T) {
	if _, err := gatherSegments(t.TempDir()); err == nil {
		t.Fatal("expected error for empty segment dir")
	}
}
