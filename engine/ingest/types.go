package ingest

import "clipindex/engine/domain"

// EmbeddedBatch carries the transcripts of one save invocation together
// with their embedding vectors, one vector per transcript.
type EmbeddedBatch struct {
	Transcripts []domain.Transcript
	Vectors     [][]float32
}

// ClipSaved is the event announced after a clip's record is stored.
type ClipSaved struct {
	ID     string   `json:"id"`
	File   string   `json:"file"`
	Topics []string `json:"topics"`
}
