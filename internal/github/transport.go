package github

import (
	"net/http"

	"golang.org/x/time/rate"
)

// transport authenticates every request and optionally paces them.
type transport struct {
	token   string
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	req = req.Clone(req.Context())
	if t.token != "" {
		req.Header.Set("Authorization", "token "+t.token)
	}
	return t.base.RoundTrip(req)
}
