// Package domain holds the core types and validation rules shared by the
// save and search pipelines.
package domain

// Transcript is the text produced for a single media file. It is immutable
// once the transcription service returns; the pipelines only ever attach
// topic labels before converting it into a vector record.
type Transcript struct {
	// Path is the local media file the transcript was produced from.
	Path string
	// Text is the raw transcript text.
	Text string
	// Topics holds the labels assigned by the topic extractor.
	Topics []string
}
