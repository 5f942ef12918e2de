package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 200
)

// HTTPTask — задача "http".
//
// Поля сообщения:
//   - method (string): HTTP-метод. Default: GET
//   - url (string): адрес запроса (обязательно)
//   - headers (object): заголовки
//   - body (any): тело запроса, сериализуется в JSON
//   - timeout_sec (number): таймаут запроса. Default: 30
//
// Ответ с кодом >= 400 считается ошибкой выполнения.
type HTTPTask struct {
	Client *http.Client
}

// Run выполняет HTTP-запрос.
func (t *HTTPTask) Run(ctx context.Context, msg *task.Message) error {
	method := msg.String("method", http.MethodGet)
	url := msg.String("url", "")
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrHTTPRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(msg))
	defer cancel()

	var bodyReader io.Reader
	if body, ok := msg.Get("body"); ok && body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", ErrHTTPRequest, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}

	for key, val := range msg.Map("headers") {
		if s, ok := val.(string); ok {
			req.Header.Set(key, s)
		}
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// в ошибку попадает только начало тела
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+utf8.UTFMax))
		return fmt.Errorf("%w: HTTP %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(respBody), maxErrorBody))
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	telemetry.FromContext(ctx).Debug("http task completed",
		"method", method,
		"url", url,
		"status_code", resp.StatusCode,
		"bytes", n,
	)

	return nil
}

// timeout извлекает timeout_sec из сообщения.
func timeout(msg *task.Message) time.Duration {
	if v := msg.Float("timeout_sec", 0); v > 0 {
		return time.Duration(v * float64(time.Second))
	}
	return defaultHTTPTimeout
}

// truncate обрезает строку до maxLen байт, не разрезая символ UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
