package service

import (
	"context"
	"io"
	stdlog "log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// newRetryClient returns an HTTP client that retries connection errors,
// 429s and 5xx responses with exponential backoff. After the last attempt
// the final response is handed back to the caller instead of an error.
func newRetryClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("attempt", attempt).
			Msg("Outbound request")
	}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp == nil {
			return true, err
		}
		// Auth and validation errors will not get better by retrying
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, nil
	}
	return client
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
