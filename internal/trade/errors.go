package trade

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/poe2gradegap/internal/model"
)

const maxErrorDetail = 200

// HTTPError is a non-2xx response that was not (or no longer) retried.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

func (e *HTTPError) Error() string {
	detail := errorDetail(e.Body)
	if e.Attempts > 1 {
		return fmt.Sprintf("HTTP %d after %d attempts: %s", e.StatusCode, e.Attempts, detail)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, detail)
}

// IsRetryable reports whether a status is retried by the client: 429 (rate
// limited) and 502 (upstream unstable).
func IsRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusBadGateway
}

// errorDetail turns an error body into one line. The trade API answers with
// {"error":{"message":...}}; the CDN in front of it answers with HTML pages.
func errorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "empty response body"
	}

	if trimmed[0] == '{' {
		if n, err := model.ParseNode(trimmed); err == nil {
			if msg := n.Path("error", "message").Str(); msg != "" {
				return msg
			}
		}
	}

	if trimmed[0] == '<' {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed)); err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return title
			}
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				return h1
			}
		}
	}

	s := strings.Join(strings.Fields(string(trimmed)), " ")
	if len(s) > maxErrorDetail {
		s = s[:maxErrorDetail] + "..."
	}
	return s
}
