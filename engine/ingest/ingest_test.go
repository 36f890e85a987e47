package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipindex/engine/domain"
	"clipindex/engine/semantic"
)

// --- Fakes ---

type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) TranscribeAll(_ context.Context, paths []string) ([]domain.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Transcript, len(paths))
	for i, p := range paths {
		out[i] = domain.Transcript{Path: p, Text: "transcript of " + filepath.Base(p)}
	}
	return out, nil
}

type fakeTopics struct {
	calls int
	err   error
}

func (f *fakeTopics) ExtractAll(_ context.Context, transcripts []domain.Transcript) ([][]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]string, len(transcripts))
	for i := range transcripts {
		out[i] = []string{"topic", filepath.Base(transcripts[i].Path)}
	}
	return out, nil
}

type fakeEmbedder struct {
	short bool
	err   error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

type fakeStore struct {
	records []semantic.VectorRecord
	err     error
}

func (f *fakeStore) Upsert(_ context.Context, records []semantic.VectorRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

func writeClip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newDeps(store *fakeStore) Deps {
	return Deps{
		Transcriber: &fakeTranscriber{},
		Topics:      &fakeTopics{},
		Embedder:    &fakeEmbedder{},
		Store:       store,
	}
}

// --- Tests ---

func TestPipeline_OneRecordPerFile(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "content-a")
	b := writeClip(t, dir, "b.mp4", "content-b")

	store := &fakeStore{}
	pipeline := NewPipeline(newDeps(store))

	ids, err := pipeline(context.Background(), []string{a, b}).Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %d, want 2", len(ids))
	}
	if len(store.records) != 2 {
		t.Fatalf("records = %d, want 2", len(store.records))
	}

	r := store.records[0]
	if r.ID != ids[0] {
		t.Errorf("record id = %q, want %q", r.ID, ids[0])
	}
	if got := r.Payload["source"]; got != "a.mp4" {
		t.Errorf("source = %v", got)
	}
	topics, ok := r.Payload["topics"].([]string)
	if !ok || len(topics) != 2 || topics[1] != "a.mp4" {
		t.Errorf("topics = %v", r.Payload["topics"])
	}
	if got := r.Payload["excerpt"]; got != "transcript of a.mp4" {
		t.Errorf("excerpt = %v", got)
	}
	if len(r.Embedding) == 0 {
		t.Error("record has no embedding")
	}
}

func TestPipeline_TopicsBatchedOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "content-a")
	b := writeClip(t, dir, "b.mp4", "content-b")

	topics := &fakeTopics{}
	deps := newDeps(&fakeStore{})
	deps.Topics = topics

	if _, err := NewPipeline(deps)(context.Background(), []string{a, b}).Unwrap(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topics.calls != 1 {
		t.Errorf("topic extraction calls = %d, want 1 for the whole batch", topics.calls)
	}
}

func TestPipeline_ValidationFailureIsLocal(t *testing.T) {
	topics := &fakeTopics{}
	deps := newDeps(&fakeStore{})
	deps.Topics = topics

	result := NewPipeline(deps)(context.Background(), []string{filepath.Join(t.TempDir(), "nope.mp4")})
	if _, err := result.Unwrap(); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if topics.calls != 0 {
		t.Error("no remote stage should run after validation fails")
	}
}

func TestPipeline_NoFiles(t *testing.T) {
	result := NewPipeline(newDeps(&fakeStore{}))(context.Background(), nil)
	if _, err := result.Unwrap(); err == nil {
		t.Fatal("expected error")
	}
}

func TestPipeline_TranscribeErrorShortCircuits(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "content-a")

	store := &fakeStore{}
	deps := newDeps(store)
	deps.Transcriber = &fakeTranscriber{err: errors.New("service down")}

	if _, err := NewPipeline(deps)(context.Background(), []string{a}).Unwrap(); err == nil {
		t.Fatal("expected error")
	}
	if len(store.records) != 0 {
		t.Error("nothing should be stored after a transcription failure")
	}
}

func TestPipeline_VectorCountMismatch(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "content-a")
	b := writeClip(t, dir, "b.mp4", "content-b")

	deps := newDeps(&fakeStore{})
	deps.Embedder = &fakeEmbedder{short: true}

	if _, err := NewPipeline(deps)(context.Background(), []string{a, b}).Unwrap(); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestPipeline_StoreError(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "content-a")

	deps := newDeps(&fakeStore{err: errors.New("unavailable")})
	if _, err := NewPipeline(deps)(context.Background(), []string{a}).Unwrap(); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordID_ContentDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp4", "same content")
	b := writeClip(t, dir, "b.mp4", "same content")
	c := writeClip(t, dir, "c.mp4", "different content")

	idA, err := RecordID(a)
	if err != nil {
		t.Fatal(err)
	}
	idB, err := RecordID(b)
	if err != nil {
		t.Fatal(err)
	}
	idC, err := RecordID(c)
	if err != nil {
		t.Fatal(err)
	}

	if idA != idB {
		t.Errorf("identical content must produce the same ID: %s vs %s", idA, idB)
	}
	if idA == idC {
		t.Error("different content must produce different IDs")
	}
}

func TestRecordID_MissingFile(t *testing.T) {
	if _, err := RecordID(filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Fatal("expected error")
	}
}
