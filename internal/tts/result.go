package tts

// Request is a single synthesis call. An empty Language means none was
// supplied.
type Request struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Result is either Ok (an audio file and a message) or Failure (a message
// only). Err carries the classified cause of a Failure for logging.
type Result struct {
	AudioPath string `json:"audio_path,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`

	ok bool
}

func Ok(audioPath, message string) Result {
	return Result{AudioPath: audioPath, Message: message, ok: true}
}

func Failure(message string, err error) Result {
	return Result{Message: message, Err: err}
}

func (r Result) OK() bool { return r.ok }
