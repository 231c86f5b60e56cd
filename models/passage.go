package models

import (
	"strings"
	"time"
)

// DefaultPassageTable is the knowledge base table the ingestion job writes to
const DefaultPassageTable = "nse_knowledge"

// Passage represents a stored knowledge base passage and its embedding
type Passage struct {
	ID        int64     `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	Source    string    `json:"source,omitempty" db:"source"`
	Embedding []float32 `json:"-" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Passage model
func (Passage) TableName() string {
	return DefaultPassageTable
}

// NewPassage creates a new Passage with trimmed content
func NewPassage(content, source string, embedding []float32) *Passage {
	return &Passage{
		Content:   strings.TrimSpace(content),
		Source:    strings.TrimSpace(source),
		Embedding: embedding,
	}
}

// Dimensions returns the length of the passage embedding
func (p *Passage) Dimensions() int {
	return len(p.Embedding)
}

// ScoredPassage is a passage ranked against a query vector.
// Similarity is 1 - cosine distance, in [-1, 1]; higher is more similar.
type ScoredPassage struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Source     string  `json:"source,omitempty"`
	Similarity float64 `json:"similarity"`
}
