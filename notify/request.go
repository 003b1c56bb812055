package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

const maxErrorBody = 512

// webhookError hides the webhook URL, which carries the access token.
type webhookError struct {
	err      error
	scrubber *strings.Replacer
}

func (e *webhookError) Error() string { return e.scrubber.Replace(e.err.Error()) }

func (e *webhookError) Unwrap() error { return e.err }

// postJSON POSTs body as JSON and returns the response body when the status is one of ok.
func postJSON(ctx context.Context, client *http.Client, url string, body any, ok ...int) ([]byte, error) {
	scrubber := strings.NewReplacer(url, "[webhook]")
	wrap := func(err error) error { return &webhookError{err: err, scrubber: scrubber} }

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload with %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, wrap(err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, wrap(fmt.Errorf("failed to read response with %w", err))
	}

	if len(ok) == 0 {
		ok = []int{http.StatusOK}
	}
	if !slices.Contains(ok, resp.StatusCode) {
		snippet := string(respBody)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, wrap(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(snippet)))
	}
	return respBody, nil
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
