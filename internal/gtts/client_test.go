package gtts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/go-tts-form/internal/tts"
)

// batchResponse renders a batchexecute reply carrying audio.
func batchResponse(audio []byte) string {
	b64 := base64.StdEncoding.EncodeToString(audio)
	return ")]}'\n\n" +
		"123\n" +
		`[["wrb.fr","jQ1olc","[\"` + b64 + `\"]",null,null,null,"generic"]]` + "\n" +
		`[["di",42],["af.httprm",41,"-1",1]]` + "\n"
}

type recordedRequest struct {
	method  string
	path    string
	headers http.Header
	form    url.Values
}

func fakeTranslate(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))

		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, headers: r.Header.Clone(), form: form})
		n := len(reqs)
		mu.Unlock()

		handler(w, r, n)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

// decodePayload unpacks f.req into text, lang and speed.
func decodePayload(t *testing.T, form url.Values) (string, string, any) {
	t.Helper()

	var outer [][][]any
	if err := json.Unmarshal([]byte(form.Get("f.req")), &outer); err != nil {
		t.Fatalf("decode f.req: %v (%q)", err, form.Get("f.req"))
	}
	rpc := outer[0][0]
	if rpc[0] != "jQ1olc" || rpc[2] != nil || rpc[3] != "generic" {
		t.Fatalf("unexpected rpc envelope: %v", rpc)
	}

	var inner []any
	if err := json.Unmarshal([]byte(rpc[1].(string)), &inner); err != nil {
		t.Fatalf("decode inner payload: %v", err)
	}
	if len(inner) != 4 || inner[3] != "null" {
		t.Fatalf("unexpected inner payload: %v", inner)
	}

	return inner[0].(string), inner[1].(string), inner[2]
}

func encodeToBytes(t *testing.T, a tts.Audio) []byte {
	t.Helper()
	var sb seekBuf
	if err := a.Encode(&sb); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sb.Bytes()
}

// seekBuf is a minimal io.WriteSeeker for append-only writers.
type seekBuf struct{ bytes.Buffer }

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	return int64(s.Len()), nil
}

func TestClient_SingleChunk(t *testing.T) {
	srv, requests := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		fmt.Fprint(w, batchResponse([]byte("MP3DATA")))
	})

	c := NewClient(WithBaseURL(srv.URL), WithTLD("co.uk"))

	got, err := c.Synthesize(context.Background(), "Hello world", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if data := encodeToBytes(t, got); string(data) != "MP3DATA" {
		t.Errorf("audio = %q; want MP3DATA", data)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("want 1 request, got %d", len(reqs))
	}
	r := reqs[0]

	if r.method != http.MethodPost {
		t.Errorf("method = %s", r.method)
	}
	if r.path != "/_/TranslateWebserverUi/data/batchexecute" {
		t.Errorf("path = %s", r.path)
	}
	if ct := r.headers.Get("Content-Type"); ct != "application/x-www-form-urlencoded;charset=utf-8" {
		t.Errorf("content-type = %q", ct)
	}
	if ref := r.headers.Get("Referer"); ref != "https://translate.google.co.uk/" {
		t.Errorf("referer = %q", ref)
	}
	if r.headers.Get("User-Agent") == "" {
		t.Error("missing User-Agent")
	}

	text, lang, speed := decodePayload(t, r.form)
	if text != "Hello world" || lang != "en" || speed != nil {
		t.Errorf("payload = (%q, %q, %v)", text, lang, speed)
	}
}

func TestClient_DefaultLanguageAndSlow(t *testing.T) {
	srv, requests := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		fmt.Fprint(w, batchResponse([]byte("x")))
	})

	c := NewClient(WithBaseURL(srv.URL), WithDefaultLanguage("fr"), WithSlow(true))

	if _, err := c.Synthesize(context.Background(), "Bonjour", ""); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	_, lang, speed := decodePayload(t, requests()[0].form)
	if lang != "fr" {
		t.Errorf("lang = %q; want fr", lang)
	}
	if speed != true {
		t.Errorf("speed = %v; want true", speed)
	}
}

func TestClient_ConcatenatesChunks(t *testing.T) {
	srv, requests := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, n int) {
		fmt.Fprint(w, batchResponse([]byte(fmt.Sprintf("[%d]", n))))
	})

	c := NewClient(WithBaseURL(srv.URL))
	input := "First sentence here. " + strings.Repeat("word ", 30) + "end."

	got, err := c.Synthesize(context.Background(), input, "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	reqs := requests()
	if len(reqs) < 3 {
		t.Fatalf("want at least 3 chunk requests, got %d", len(reqs))
	}

	var want strings.Builder
	for i := range reqs {
		fmt.Fprintf(&want, "[%d]", i+1)

		text, _, _ := decodePayload(t, reqs[i].form)
		if len([]rune(text)) > 100 {
			t.Errorf("chunk %d has %d chars", i, len([]rune(text)))
		}
	}
	if data := encodeToBytes(t, got); string(data) != want.String() {
		t.Errorf("audio = %q; want %q", data, want.String())
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrBadToken},
		{http.StatusNotFound, ErrBadTLD},
		{http.StatusInternalServerError, ErrUpstream},
		{http.StatusBadGateway, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
				w.WriteHeader(tt.status)
			})

			_, err := NewClient(WithBaseURL(srv.URL)).Synthesize(context.Background(), "hi", "en")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv, _ := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusTeapot)
	})

	_, err := NewClient(WithBaseURL(srv.URL)).Synthesize(context.Background(), "hi", "en")
	if err == nil || !strings.Contains(err.Error(), "418") {
		t.Errorf("err = %v; want status 418", err)
	}
}

func TestClient_NoAudioInResponse(t *testing.T) {
	srv, _ := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		fmt.Fprint(w, ")]}'\n\n[[\"wrb.fr\",\"jQ1olc\",null,null,null,[3],\"generic\"]]\n")
	})

	_, err := NewClient(WithBaseURL(srv.URL)).Synthesize(context.Background(), "hi", "xx")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("err = %v; want ErrNoAudio", err)
	}
	if !strings.Contains(err.Error(), "unsupported language?") {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestClient_BlankInput(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))

	for _, in := range []string{"", "  \n ", "... !"} {
		if _, err := c.Synthesize(context.Background(), in, "en"); !errors.Is(err, ErrNoText) {
			t.Errorf("input %q: err = %v; want ErrNoText", in, err)
		}
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv, _ := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		fmt.Fprint(w, batchResponse([]byte("x")))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(srv.URL)).Synthesize(ctx, "hi", "en")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestClient_RateLimit(t *testing.T) {
	srv, requests := fakeTranslate(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		fmt.Fprint(w, batchResponse([]byte("x")))
	})

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(20, 1))

	start := time.Now()
	if _, err := c.Synthesize(context.Background(), "one. two. three.", "en"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	elapsed := time.Since(start)

	if n := len(requests()); n != 3 {
		t.Fatalf("want 3 requests, got %d", n)
	}
	// Burst 1 at 20/s: the second and third requests wait ~50ms each.
	if elapsed < 80*time.Millisecond {
		t.Errorf("elapsed %v; limiter did not delay requests", elapsed)
	}
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"), WithRateLimit(0.001, 1))
	// Drain the single token.
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Synthesize(ctx, "hi", "en")
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("err = %v; want rate limit error", err)
	}
}

func TestClient_Endpoint(t *testing.T) {
	if got := NewClient().Endpoint(); got != "https://translate.google.com/_/TranslateWebserverUi/data/batchexecute" {
		t.Errorf("default endpoint = %q", got)
	}
	if got := NewClient(WithTLD("de")).Endpoint(); !strings.HasPrefix(got, "https://translate.google.de/") {
		t.Errorf("tld endpoint = %q", got)
	}
	if got := NewClient(WithBaseURL("http://proxy:8080/")).Endpoint(); got != "http://proxy:8080/_/TranslateWebserverUi/data/batchexecute" {
		t.Errorf("base url endpoint = %q", got)
	}
	if NewClient().Format() != tts.FormatMP3 {
		t.Error("client format should be MP3")
	}
}

func TestRequestBody_NoHTMLEscaping(t *testing.T) {
	body, err := requestBody("a <b> & c", "en", false)
	if err != nil {
		t.Fatalf("requestBody: %v", err)
	}
	if !strings.HasPrefix(body, "f.req=") || !strings.HasSuffix(body, "&") {
		t.Fatalf("body = %q", body)
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	raw := form.Get("f.req")
	if strings.Contains(raw, `\u003c`) || strings.Contains(raw, `\u0026`) {
		t.Errorf("payload is HTML-escaped: %s", raw)
	}
	want := `[[["jQ1olc","[\"a <b> & c\",\"en\",null,\"null\"]",null,"generic"]]]`
	if raw != want {
		t.Errorf("f.req = %s\nwant    %s", raw, want)
	}
}
