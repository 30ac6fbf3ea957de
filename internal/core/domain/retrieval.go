package domain

// ContextPassage is a corpus chunk retrieved as relevant to a query.
// Distance is a dissimilarity score: lower means more similar, and retrieval
// results are ordered by ascending distance.
type ContextPassage struct {
	Text     string         `json:"text"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IndexPoint is one (id, vector, text, metadata) tuple stored in a collection.
type IndexPoint struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

type CorpusStats struct {
	Collection string `json:"collection_name"`
	Chunks     int    `json:"total_chunks"`
	Indexed    bool   `json:"indexed"`
}
