package semantic

// VectorRecord is a single vector to store, with its payload metadata.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // source, topics, excerpt
}

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID      string   `json:"id"`
	Score   float32  `json:"score"`
	Source  string   `json:"source"`
	Topics  []string `json:"topics"`
	Excerpt string   `json:"excerpt,omitempty"`
}
