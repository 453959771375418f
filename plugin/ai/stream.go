package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// Shared streaming machinery for the provider adapters. Backends with
// native SSE are decoded line by line; backends that only return a full
// JSON document are re-chunked locally so every adapter delivers the same
// incremental contract to the orchestrator.

// chunkDelay is the pause between emulated chunks for non-streaming
// backends. Cooperative sleep, never holds a lock.
const chunkDelay = 30 * time.Millisecond

// sseSentinel terminates an SSE completion stream.
const sseSentinel = "[DONE]"

var defaultHTTPClient = &http.Client{Timeout: 2 * time.Minute}

// postJSON issues a JSON POST and returns the raw response. The caller owns
// the response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return resp, nil
}

// readSSEStream consumes newline-delimited "data:" events from r, invoking
// handle with each complete payload. A byte buffer is carried across reads
// so an incomplete trailing line survives until the next read. The stream
// ends at the [DONE] sentinel or at EOF; a line still buffered at EOF is
// flushed before returning.
func readSSEStream(r io.Reader, handle func(payload []byte) error) error {
	var buf []byte
	chunk := make([]byte, 4096)

	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				idx := bytes.IndexByte(buf, '\n')
				if idx < 0 {
					break
				}
				line := buf[:idx]
				buf = buf[idx+1:]

				done, err := handleSSELine(line, handle)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				if len(buf) > 0 {
					if _, err := handleSSELine(buf, handle); err != nil {
						return err
					}
				}
				return nil
			}
			return errors.Wrap(readErr, "stream read failed")
		}
	}
}

func handleSSELine(line []byte, handle func(payload []byte) error) (done bool, err error) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte("data:")) {
		return false, nil
	}
	payload := bytes.TrimSpace(line[len("data:"):])
	if len(payload) == 0 {
		return false, nil
	}
	if string(payload) == sseSentinel {
		return true, nil
	}
	return false, handle(payload)
}

// emit sends one chunk with respect to cancellation. Reports whether the
// consumer is still there.
func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleepChunk(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamByWords re-chunks a full answer word by word with a fixed delay,
// appending a newline after each sentence. The concatenation of the emitted
// chunks reproduces every word of the original text.
func streamByWords(ctx context.Context, out chan<- string, text string, delay time.Duration) bool {
	for _, sentence := range splitSentences(text) {
		for _, word := range strings.Fields(sentence) {
			if !emit(ctx, out, word+" ") {
				return false
			}
			if !sleepChunk(ctx, delay) {
				return false
			}
		}
		if !emit(ctx, out, "\n") {
			return false
		}
	}
	return true
}

// streamByRunes re-chunks a full answer into fixed-size rune slices with a
// fixed delay. Runes, not bytes: the answers are mostly Cyrillic and a byte
// split would tear multi-byte characters apart.
func streamByRunes(ctx context.Context, out chan<- string, text string, size int, delay time.Duration) bool {
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if !emit(ctx, out, string(runes[i:end])) {
			return false
		}
		if !sleepChunk(ctx, delay) {
			return false
		}
	}
	return true
}

// splitSentences splits text after sentence-ending punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		if trailing := strings.TrimSpace(string(runes[start:])); trailing != "" {
			sentences = append(sentences, trailing)
		}
	}
	return sentences
}
