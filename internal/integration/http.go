// Package integration handles external service interactions
package integration

import (
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every network call unless the caller configures another value
const DefaultTimeout = 60 * time.Second

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func newHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("user-agent", userAgent)
	// Google Trends hands out its session cookie on the first request
	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}
	return client
}
