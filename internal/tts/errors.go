package tts

import "errors"

var (
	ErrEmptyInput             = errors.New("empty input")
	ErrUnsupportedLanguage    = errors.New("unsupported language")
	ErrSynthesizerUnavailable = errors.New("synthesizer unavailable")
	ErrSynthesisFailed        = errors.New("synthesis failed")
	ErrEncodingFailed         = errors.New("encoding failed")
)

// Reason maps a handler error to a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrUnsupportedLanguage):
		return "unsupported_language"
	case errors.Is(err, ErrSynthesizerUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEncodingFailed):
		return "encoding"
	case errors.Is(err, ErrSynthesisFailed):
		return "synthesis"
	default:
		return "unknown"
	}
}
