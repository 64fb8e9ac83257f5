// Package api is the REST client for the assistant backend.
package api

import (
	"clementus360/agent-client/auth"
	"clementus360/agent-client/config"
	"clementus360/agent-client/middleware"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

type Option func(*Client)

// WithTransport replaces the base transport under the middleware chain.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client whose every request carries the credential from creds and
// invalidates it on a 401.
func New(baseURL string, creds auth.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: http.DefaultTransport,
		},
		logger: config.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.Transport = middleware.Chain(
		middleware.RequestIDMiddleware,
		middleware.AuthMiddleware(creds),
		middleware.UnauthorizedMiddleware(creds),
		middleware.LoggingMiddleware(c.logger),
	)(c.http.Transport)

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
