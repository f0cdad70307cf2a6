// Package chunker splits cleaned document text into token-bounded chunks
// with overlap, preferring paragraph and sentence boundaries over blind
// token windows.
package chunker

import (
	"regexp"
	"strings"
)

// Meta carries the document-level fields copied onto every chunk derived
// from it.
type Meta struct {
	URL           string
	CanonicalURL  string
	Domain        string
	Title         string
	Description   string
	Language      string
	Country       string
	IsMobile      bool
}

// Chunk is one token-bounded slice of a document's cleaned text.
type Chunk struct {
	Text       string
	ChunkIndex int
	TokenCount int
	Meta       Meta
}

// Config bounds chunk size and overlap, in tokens.
type Config struct {
	MaxChunkTokens     int
	ChunkOverlapTokens int
	Tokenizer          Tokenizer
}

// DefaultConfig matches the spec's default budget: 256 tokens per chunk,
// 50 tokens of overlap between adjacent chunks.
func DefaultConfig() Config {
	return Config{MaxChunkTokens: 256, ChunkOverlapTokens: 50, Tokenizer: WhitespaceTokenizer{}}
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n+`)
var sentenceSplit = regexp.MustCompile(`(?s)([^.!?]+[.!?]+|[^.!?]+$)`)

func paragraphsOf(text string) []string {
	raw := paragraphSplit.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sentencesOf(text string) []string {
	raw := sentenceSplit.FindAllString(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Chunk splits text into a finite, restartable sequence of token-bounded
// chunks carrying meta. Empty/whitespace-only input yields an empty
// sequence, not an error.
func Chunk(text string, meta Meta, cfg Config) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tok := cfg.Tokenizer
	if tok == nil {
		tok = WhitespaceTokenizer{}
	}
	maxTokens := cfg.MaxChunkTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	overlap := cfg.ChunkOverlapTokens
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}

	units := unitsBoundedBy(text, maxTokens, tok)
	return groupUnits(units, meta, maxTokens, overlap, tok)
}

// unitsBoundedBy produces an ordered sequence of text units (paragraphs,
// falling back to sentences, falling back to fixed token windows) each no
// larger than maxTokens.
func unitsBoundedBy(text string, maxTokens int, tok Tokenizer) []string {
	var units []string
	for _, p := range paragraphsOf(text) {
		units = append(units, splitOversized(p, maxTokens, tok)...)
	}
	return units
}

func splitOversized(unit string, maxTokens int, tok Tokenizer) []string {
	toks := tok.Tokenize(unit)
	if len(toks) <= maxTokens {
		return []string{unit}
	}
	var out []string
	for _, s := range sentencesOf(unit) {
		sToks := tok.Tokenize(s)
		if len(sToks) <= maxTokens {
			out = append(out, s)
			continue
		}
		// Sentence itself exceeds the budget: fall back to fixed windows.
		for i := 0; i < len(sToks); i += maxTokens {
			end := i + maxTokens
			if end > len(sToks) {
				end = len(sToks)
			}
			out = append(out, tok.Detokenize(sToks[i:end]))
		}
	}
	return out
}

// groupUnits packs units into chunks bounded by maxTokens, carrying up to
// overlap trailing tokens of the previous chunk into the next one.
func groupUnits(units []string, meta Meta, maxTokens, overlap int, tok Tokenizer) []Chunk {
	var chunks []Chunk
	var cur []string // accumulated tokens for the in-progress chunk
	carried := 0     // leading tokens of cur carried over from the previous chunk

	flush := func() {
		if len(cur) <= carried {
			return // only carried-over overlap, no new tokens: not a chunk
		}
		chunks = append(chunks, Chunk{
			Text:       tok.Detokenize(cur),
			ChunkIndex: len(chunks),
			TokenCount: len(cur),
			Meta:       meta,
		})
	}

	for _, u := range units {
		uToks := tok.Tokenize(u)
		if len(uToks) == 0 {
			continue
		}
		if len(cur) > 0 && len(cur)+len(uToks) > maxTokens {
			flush()
			// Clip the carried-forward overlap so it can't by itself push
			// this unit over budget; units are already capped at maxTokens
			// by splitOversized, so the unit alone always fits.
			clipped := overlap
			if room := maxTokens - len(uToks); room < clipped {
				clipped = room
			}
			cur = overlapTail(cur, clipped)
			carried = len(cur)
		}
		cur = append(cur, uToks...)
		// The append above may still fill (or, for an oversized unit,
		// exactly fit) the chunk; flush and carry the overlap tail into
		// the next one rather than assuming one append can't overflow.
		if len(cur) >= maxTokens {
			flush()
			cur = overlapTail(cur, overlap)
			carried = len(cur)
		}
	}
	flush()

	return chunks
}

func overlapTail(tokens []string, overlap int) []string {
	if overlap <= 0 || len(tokens) == 0 {
		return nil
	}
	if overlap >= len(tokens) {
		tail := make([]string, len(tokens))
		copy(tail, tokens)
		return tail
	}
	tail := make([]string, overlap)
	copy(tail, tokens[len(tokens)-overlap:])
	return tail
}
