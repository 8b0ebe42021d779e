package shopclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 10 * time.Second

type retriedKey struct{}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// refreshTransport retries a request once after a 401, refreshing the access
// cookie first. Concurrent 401s share one refresh call.
type refreshTransport struct {
	base    http.RoundTripper
	jar     http.CookieJar
	refresh func(ctx context.Context) error
	expired func(err error)
	group   singleflight.Group
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		buffered, err := bufferBody(req)
		if err != nil {
			return nil, err
		}
		req = buffered
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isRetried(req.Context()) {
		return resp, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := t.refreshShared(req.Context()); err != nil {
		return nil, err
	}

	retry := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	// The jar now holds the new access cookie; req.Header still carries the stale one.
	if t.jar != nil {
		retry.Header.Del("Cookie")
		for _, c := range t.jar.Cookies(retry.URL) {
			retry.AddCookie(c)
		}
	}
	return t.base.RoundTrip(retry)
}

func (t *refreshTransport) refreshShared(ctx context.Context) error {
	_, err, _ := t.group.Do("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		err := t.refresh(rctx)
		if err != nil && t.expired != nil {
			t.expired(err)
		}
		return nil, err
	})
	return err
}

func bufferBody(req *http.Request) (*http.Request, error) {
	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	cp := req.Clone(req.Context())
	cp.Body = io.NopCloser(bytes.NewReader(raw))
	cp.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	cp.ContentLength = int64(len(raw))
	return cp, nil
}
