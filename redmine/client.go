// Package redmine is the client for the remote ticketing service's web API:
// authenticated collection listing with offset pagination, plus attachment
// byte-stream downloads.
package redmine

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/types"
)

// Options configures the API client.
// Either APIKey or Username+Password must be set.
type Options struct {
	BaseURL   string
	APIKey    string
	Username  string
	Password  string
	VerifySSL bool
}

// Client talks to the remote API over HTTP(S).
type Client struct {
	http   *resty.Client
	logger *log.Logger
}

// NewClient validates credentials and builds the HTTP client.
func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.APIKey == "" && (opts.Username == "" || opts.Password == "") {
		return nil, fmt.Errorf("credentials required: set an API key or username and password")
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json")

	if !opts.VerifySSL {
		hc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // operator-controlled flag for self-signed deployments
	}

	if opts.APIKey != "" {
		hc.SetHeader("X-Redmine-API-Key", opts.APIKey)
		logger.Info("api client initialized with key auth", map[string]any{"base_url": opts.BaseURL})
	} else {
		hc.SetBasicAuth(opts.Username, opts.Password)
		logger.Info("api client initialized with basic auth", map[string]any{"base_url": opts.BaseURL})
	}

	return &Client{http: hc, logger: logger}, nil
}

// issuesEnvelope is the wire shape of a collection page.
type issuesEnvelope struct {
	Issues     []issueJSON `json:"issues"`
	TotalCount int         `json:"total_count"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
}

type issueJSON struct {
	ID          int              `json:"id"`
	Subject     string           `json:"subject"`
	Attachments []attachmentJSON `json:"attachments"`
}

type attachmentJSON struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	Filesize   int64  `json:"filesize"`
	ContentURL string `json:"content_url"`
}

// ListIssues fetches one collection page: exactly limit records starting at
// offset, attachments included, all statuses. The timeout bounds the whole
// call; exceeding it surfaces as a timeout failure, never an outstanding call.
func (c *Client) ListIssues(ctx context.Context, offset, limit int, sort string, timeout time.Duration) ([]types.Record, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var envelope issuesEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":    strconv.Itoa(offset),
			"limit":     strconv.Itoa(limit),
			"sort":      sort,
			"include":   "attachments",
			"status_id": "*",
		}).
		SetResult(&envelope).
		Get("/issues.json")
	if err != nil {
		return nil, fmt.Errorf("list records (offset=%d): %w", offset, err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Request.URL)
	}

	records := make([]types.Record, 0, len(envelope.Issues))
	for _, issue := range envelope.Issues {
		attachments := make([]types.Attachment, 0, len(issue.Attachments))
		for _, a := range issue.Attachments {
			attachments = append(attachments, types.Attachment{
				ID:         a.ID,
				Filename:   a.Filename,
				ContentURL: a.ContentURL,
				Filesize:   a.Filesize,
			})
		}
		records = append(records, types.Record{
			ID:          issue.ID,
			Subject:     issue.Subject,
			Attachments: attachments,
		})
	}

	c.logger.Debug("collection page fetched", map[string]any{
		"offset":   offset,
		"limit":    limit,
		"returned": len(records),
		"total":    envelope.TotalCount,
	})

	return records, nil
}

// Download opens the attachment byte stream at url. The caller owns the
// returned ReadCloser; closing it also releases the timeout bound on the
// underlying request.
func (c *Client) Download(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error) {
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	body := resp.RawBody()
	if resp.StatusCode() >= 400 {
		_ = body.Close()
		cancel()
		return nil, newStatusError(resp.StatusCode(), url)
	}

	return &cancelReadCloser{rc: body, cancel: cancel}, nil
}

// cancelReadCloser ties the request's timeout context to the body's lifetime.
type cancelReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelReadCloser) Close() error {
	defer c.cancel()
	return c.rc.Close()
}
