package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PointTypeDocumentChunk tags points produced by the document embedding pipeline.
const PointTypeDocumentChunk = "document_chunk"

// PointPayload is the metadata bag stored with every vector-store point.
type PointPayload struct {
	DocumentID     int64     `json:"document_id"`
	Title          string    `json:"title"`
	SectionHeading string    `json:"section_heading"`
	ParentHeading  string    `json:"parent_heading,omitempty"`
	HeadingLevel   int       `json:"heading_level"`
	ChunkIndex     int       `json:"chunk_index"`
	ChunkTotal     int       `json:"chunk_total"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Type           string    `json:"type"`
}

// Point is a vector-store record: a vector, its metadata, and the original
// chunk text kept alongside for hydration at query time.
type Point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload PointPayload `json:"payload"`
	Content string       `json:"content"`
}

// ScoredPoint is a point returned by a similarity search.
type ScoredPoint struct {
	Point
	Score float32 `json:"score"`
}

// RankedPassage is the retrieval result shape exposed to the chat feature.
type RankedPassage struct {
	DocumentID     int64   `json:"document_id"`
	Title          string  `json:"title"`
	SectionHeading string  `json:"section_heading"`
	ParentHeading  string  `json:"parent_heading,omitempty"`
	Text           string  `json:"text"`
	Score          float32 `json:"score"`
}

// PointID derives the deterministic point identity for a (document, chunk
// index) pair. UUIDv5 keeps the key stable across re-embedding runs and valid
// for every backend, so a second upsert always replaces the first.
func PointID(documentID int64, chunkIndex int) string {
	name := fmt.Sprintf("doc:%d:chunk:%d", documentID, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
