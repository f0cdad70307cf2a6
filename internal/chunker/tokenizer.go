package chunker

import "strings"

// Tokenizer splits text into tokens and reassembles tokens into text. A
// Tokenizer is immutable after construction and safe for concurrent use.
type Tokenizer interface {
	Tokenize(text string) []string
	Detokenize(tokens []string) string
}

// WhitespaceTokenizer splits on runs of whitespace. It is the default
// tokenizer: cheap, deterministic, and adequate for the token-budget
// estimate the embedder's own tokenizer ultimately enforces.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

func (WhitespaceTokenizer) Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}
