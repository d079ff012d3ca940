// Package chunker splits document markdown into heading-aware, size-bounded
// segments that preserve parent/child heading context.
package chunker

import (
	"regexp"
	"strings"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

// DefaultMaxChunkChars bounds accumulated chunk text before a new chunk is
// forced within the same section.
const DefaultMaxChunkChars = 1500

// Options controls chunking behaviour.
type Options struct {
	// MaxChunkChars is the character threshold that forces a chunk break.
	MaxChunkChars int
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// heading is an entry on the open-heading stack.
type heading struct {
	text  string
	level int
}

// section is the chunk currently being accumulated.
type section struct {
	heading string
	parent  string
	level   int
	parts   []string
	size    int
}

// Chunk splits markdown into ordered chunks. Paragraph text accumulates
// under the most recent heading until the size threshold is crossed or a
// heading of equal-or-higher level opens a new section. Headings with no
// following body produce no chunk; a document without headings chunks by
// position alone. Chunk order is significant: the index becomes part of the
// point identity.
func Chunk(markdown string, opts Options) []domain.Chunk {
	maxChars := opts.MaxChunkChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var (
		chunks []domain.Chunk
		stack  []heading
		cur    section
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(cur.parts, "\n\n"))
		if text != "" {
			chunks = append(chunks, domain.Chunk{
				Index:          len(chunks),
				Text:           text,
				SectionHeading: cur.heading,
				ParentHeading:  cur.parent,
				HeadingLevel:   cur.level,
				Length:         len(text),
			})
		}
		cur.parts = nil
		cur.size = 0
	}

	for _, block := range splitBlocks(markdown) {
		if m := headingRe.FindStringSubmatch(block); m != nil {
			level := len(m[1])
			text := strings.TrimSpace(m[2])

			if level <= cur.level || cur.heading == "" {
				// Equal-or-higher heading: close the open section.
				flush()
			}

			// Maintain the heading stack for parent context. A deeper
			// heading becomes the active context without emitting; its
			// accumulated text carries over into the subsection.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1].text
			}
			stack = append(stack, heading{text: text, level: level})

			cur.heading = text
			cur.parent = parent
			cur.level = level
			continue
		}

		cur.parts = append(cur.parts, block)
		cur.size += len(block)
		if cur.size >= maxChars {
			flush()
		}
	}
	flush()

	return chunks
}

// splitBlocks breaks markdown into heading and paragraph blocks separated by
// blank lines. Multi-line paragraphs stay together; every heading line is
// its own block.
func splitBlocks(markdown string) []string {
	var (
		blocks []string
		para   []string
	)

	endPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, strings.Join(para, "\n"))
			para = nil
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			endPara()
		case headingRe.MatchString(trimmed):
			endPara()
			blocks = append(blocks, trimmed)
		default:
			para = append(para, trimmed)
		}
	}
	endPara()

	return blocks
}
