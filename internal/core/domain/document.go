package domain

import (
	"strings"
	"time"
)

// DocumentStatus is the lifecycle state of a document in the relational store.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusPublished DocumentStatus = "published"
)

// BlockType identifies a block in a document's structured content.
type BlockType string

const (
	BlockTypeHeader    BlockType = "header"
	BlockTypeParagraph BlockType = "paragraph"
)

// Block is one element of a document's raw structured content.
type Block struct {
	Type  BlockType `json:"type"`
	Text  string    `json:"text"`
	Level int       `json:"level,omitempty"` // heading depth, headers only
}

// Document represents a unit of knowledge owned by the relational store.
// The pipeline reads it and writes back only the derived markdown cache.
type Document struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Blocks      []Block        `json:"blocks"`
	Markdown    string         `json:"markdown"` // derived text representation, cached
	Status      DocumentStatus `json:"status"`
	Active      bool           `json:"active"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Embeddable reports whether the document should have points in the vector store.
func (d *Document) Embeddable() bool {
	return d != nil && d.Active && d.Status == DocumentStatusPublished
}

// Chunk is a heading-aware slice of a document's text. Chunks are derived,
// never persisted relationally; they travel inside embed-chunk jobs and end
// up as the content of vector-store points.
type Chunk struct {
	Index          int    `json:"index"` // 0-based, stable within a document
	Text           string `json:"text"`
	SectionHeading string `json:"section_heading"`
	ParentHeading  string `json:"parent_heading,omitempty"`
	HeadingLevel   int    `json:"heading_level"`
	Length         int    `json:"length"` // character count of Text
}

// EmbeddingText is the text sent to the embedding provider: heading context
// prepended to the body so vectors carry section topic, not just prose.
func (c *Chunk) EmbeddingText() string {
	var b strings.Builder
	if c.ParentHeading != "" {
		b.WriteString(c.ParentHeading)
		b.WriteString("\n")
	}
	if c.SectionHeading != "" {
		b.WriteString(c.SectionHeading)
		b.WriteString("\n")
	}
	b.WriteString(c.Text)
	return b.String()
}

// ChunkMetadata carries document-level context alongside a chunk in an
// embed-chunk job payload.
type ChunkMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ChunkTotal  int    `json:"chunk_total"`
}
