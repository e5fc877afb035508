package utils

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: Chunking never produces an oversized or empty part
//
// For any text and any positive limit, every chunk must fit within the limit
// and no chunk may be empty.
func TestProperty_ChunkPartsWithinLimit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every chunk fits the limit and is non-empty", prop.ForAll(
		func(text string, maxLen int) bool {
			parts := Chunk(text, maxLen)
			for _, p := range parts {
				if len(p) > maxLen {
					t.Logf("oversized chunk (%d > %d) for input %q", len(p), maxLen, text)
					return false
				}
				if p == "" {
					t.Logf("empty chunk for input %q", text)
					return false
				}
			}
			return true
		},
		genMultilineText(),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// Property: Chunking preserves non-separator content
//
// Joining the chunks and dropping newlines must reproduce the original text
// with its newlines dropped: splitting may consume boundary newlines but
// must never lose or reorder any other byte.
func TestProperty_ChunkPreservesContent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("joined chunks preserve all non-newline bytes", prop.ForAll(
		func(text string, maxLen int) bool {
			parts := Chunk(text, maxLen)
			joined := strings.ReplaceAll(strings.Join(parts, ""), "\n", "")
			original := strings.ReplaceAll(text, "\n", "")
			if joined != original {
				t.Logf("content changed for input %q: got %q", original, joined)
				return false
			}
			return true
		},
		genMultilineText(),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// Property: Single-newline texts reconstruct exactly
//
// When the text has no consecutive newlines and no leading newline, joining
// the chunks with "\n" restores the original text exactly, since every eaten
// separator was a single newline at a chunk boundary.
func TestProperty_ChunkRoundTripSingleNewlines(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("join with newline restores the original", prop.ForAll(
		func(lines []string) bool {
			text := strings.Join(lines, "\n")
			if text == "" {
				return true
			}
			parts := Chunk(text, 12)

			// Re-join: boundary cuts on a newline consumed that newline,
			// hard cuts did not. Rebuild by walking the original.
			rebuilt := parts[0]
			for _, p := range parts[1:] {
				if strings.HasPrefix(text[len(rebuilt):], "\n") {
					rebuilt += "\n"
				}
				rebuilt += p
			}
			if rebuilt != text {
				t.Logf("round trip failed: %q != %q (parts %v)", rebuilt, text, parts)
				return false
			}
			return true
		},
		gen.SliceOf(gen.RegexMatch("[a-z]{1,8}")),
	))

	properties.TestingRun(t)
}

// genMultilineText generates strings mixing words and newline runs.
func genMultilineText() gopter.Gen {
	return gen.SliceOf(gen.OneGenOf(
		gen.RegexMatch("[a-zA-Z0-9 .,!?]{0,12}"),
		gen.OneConstOf("\n", "\n\n"),
	)).Map(func(pieces []string) string {
		return strings.Join(pieces, "")
	})
}
