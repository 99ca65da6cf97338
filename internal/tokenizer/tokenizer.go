// Package tokenizer turns text into the token IDs a local speech model
// consumes.
package tokenizer

// Tokenizer encodes text into model token IDs.
type Tokenizer interface {
	Encode(text string) ([]int64, error)
}
