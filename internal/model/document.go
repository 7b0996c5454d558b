package model

import "time"

// Document is a stored record with a precomputed embedding. Documents are
// produced by the ingestion job and are read-only to the search path.
type Document struct {
	ID        string
	Title     string
	Content   string
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}
