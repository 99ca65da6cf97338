package tokenizer

import (
	"errors"
	"fmt"
	"os"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// ErrEmptyPath is returned when NewSentencePieceTokenizer is called with an empty path.
var ErrEmptyPath = errors.New("tokenizer model path must not be empty")

// SentencePieceTokenizer implements Tokenizer using a pure-Go UNIGRAM
// SentencePiece model. It is read-only after load and safe for concurrent use.
type SentencePieceTokenizer struct {
	path string
	proc gosp.Sentencepiece
}

func NewSentencePieceTokenizer(modelPath string) (*SentencePieceTokenizer, error) {
	if modelPath == "" {
		return nil, ErrEmptyPath
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("tokenizer model: %w", err)
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", modelPath, err)
	}

	return &SentencePieceTokenizer{path: modelPath, proc: proc}, nil
}

// Path returns the model file the tokenizer was loaded from.
func (t *SentencePieceTokenizer) Path() string {
	return t.path
}

// Encode tokenizes text. Empty text yields an empty slice.
func (t *SentencePieceTokenizer) Encode(text string) ([]int64, error) {
	if text == "" {
		return []int64{}, nil
	}

	ids := t.proc.TokenizeToIDs(text)

	result := make([]int64, len(ids))
	for i, id := range ids {
		result[i] = int64(id)
	}

	return result, nil
}
