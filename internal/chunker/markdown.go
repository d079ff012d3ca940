package chunker

import (
	"fmt"
	"strings"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// RenderMarkdown converts a document's raw block-structured content into the
// derived markdown representation that feeds the chunker and is written back
// to the relational store as a cache.
func RenderMarkdown(doc *domain.Document) (string, error) {
	var b strings.Builder
	for i, block := range doc.Blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}

		switch block.Type {
		case domain.BlockTypeHeader:
			level := block.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			b.WriteString(strings.Repeat("#", level))
			b.WriteString(" ")
			b.WriteString(text)
		case domain.BlockTypeParagraph:
			b.WriteString(text)
		default:
			return "", &domain.ChunkingError{
				DocumentID: doc.ID,
				Reason:     fmt.Sprintf("unsupported block type %q at position %d", block.Type, i),
			}
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
