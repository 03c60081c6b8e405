package service

import (
	"regexp"
	"strings"

	"github.com/vea-labs/docpipe/internal/domain"
)

// ChunkConfig controls how cleaned text is split for embedding.
type ChunkConfig struct {
	// Size is the window length in characters.
	Size int
	// Overlap is how many characters consecutive chunks share.
	Overlap int
}

// DefaultChunkConfig provides the pipeline defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 100,
	}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Letters and digits in any script survive cleaning; \w would limit
	// the allowed set to ASCII and mangle accented text.
	charsetRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()\[\]{}]`)
)

// CleanText normalizes extracted text before chunking: strips characters
// outside the allowed set, then collapses whitespace. Stripping first means
// a removed character cannot leave a double space behind, so cleaning is
// idempotent.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	cleaned := charsetRe.ReplaceAllString(text, "")
	cleaned = whitespaceRe.ReplaceAllString(strings.TrimSpace(cleaned), " ")
	return cleaned
}

// ChunkText splits text into ordered, overlapping chunks. Text that fits in
// one window is returned whole. Otherwise the window is cut at the nearest
// sentence terminator found in its second half, or at the raw boundary, and
// the next window starts Overlap characters before the cut.
func ChunkText(text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}

	if text == "" {
		return nil
	}

	// Window over runes so a multi-byte character is never split.
	runes := []rune(text)
	if len(runes) <= cfg.Size {
		return []domain.Chunk{{Index: 0, Text: text}}
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(runes) {
		end := start + cfg.Size

		if end < len(runes) {
			// Prefer a sentence boundary, but only within the second half
			// of the window so chunks never collapse to fragments.
			for i := end - 1; i > start+cfg.Size/2; i-- {
				if runes[i] == '.' {
					end = i + 1
					break
				}
			}
		} else {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: chunk})
		}

		start = end - cfg.Overlap
		if start >= len(runes) || end >= len(runes) {
			break
		}
	}

	return chunks
}
