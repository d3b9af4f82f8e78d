/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package entityservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
)

// errNotFound is returned by sendRequest for 404 responses
var errNotFound = errors.New("entity not found")

// Config holds the settings of the remote entity service
type Config struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	APIToken   string        `mapstructure:"api_token" yaml:"api_token"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryCount int           `mapstructure:"retry_count" yaml:"retry_count"`
}

// Client talks to the service that owns shared entities
type Client struct {
	client heimdall.Doer
	// once serves non-idempotent calls and never retries
	once     heimdall.Doer
	url      string
	apiToken string
}

// NewClient creates a client with constant backoff retries on network
// errors and 5xx responses
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("entity service configuration is missing required field: url")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid entity service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCount := cfg.RetryCount
	if retryCount < 0 {
		retryCount = 0
	}

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(retryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(100*time.Millisecond, 50*time.Millisecond))),
	)

	once := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(0),
	)

	return &Client{
		client:   client,
		once:     once,
		url:      strings.TrimRight(cfg.URL, "/"),
		apiToken: cfg.APIToken,
	}, nil
}

// Accessor returns an accessor for entities of entityType served by this client
func (c *Client) Accessor(entityType favourites.EntityType) *Accessor {
	return &Accessor{client: c, entityType: entityType}
}

func (c *Client) entityURL(entityType favourites.EntityType, id int64, parts ...string) string {
	segments := append([]string{c.url, "api", "v1", "entities", url.PathEscape(string(entityType)), strconv.FormatInt(id, 10)}, parts...)
	return strings.Join(segments, "/")
}

// sendRequest performs the call and decodes a JSON response into out when out is not nil
func (c *Client) sendRequest(ctx context.Context, method, endpoint string, body, out interface{}) error {
	return c.do(ctx, c.client, method, endpoint, body, out)
}

// sendRequestOnce is sendRequest without retries, for calls that are not
// safe to repeat
func (c *Client) sendRequestOnce(ctx context.Context, method, endpoint string, body, out interface{}) error {
	return c.do(ctx, c.once, method, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, doer heimdall.Doer, method, endpoint string, body, out interface{}) error {
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"service": "entityservice",
		"method":  method,
		"url":     endpoint,
	})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := doer.Do(req)
	if err != nil {
		log.WithError(err).Error("entity service request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.WithField("status", resp.StatusCode).Error("unexpected response from entity service")
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
