package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/punchsync/internal/model"
)

// HTTPOptions configures the attendance API client.
type HTTPOptions struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration

	// Token is a pre-issued bearer token. It is ignored when the client
	// credentials below are complete.
	Token string

	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// URL joins BaseURL and Endpoint.
func (o HTTPOptions) URL() string {
	return strings.TrimRight(o.BaseURL, "/") + "/" + strings.TrimLeft(o.Endpoint, "/")
}

// NewHTTPClient returns a client that attaches the configured credential to
// every request: a client-credentials token when ClientID, ClientSecret and
// TokenURL are set, the static Token otherwise, or nothing.
func NewHTTPClient(ctx context.Context, opts HTTPOptions) *http.Client {
	base := &http.Client{Timeout: opts.Timeout}

	var ts oauth2.TokenSource
	switch {
	case opts.ClientID != "" && opts.ClientSecret != "" && opts.TokenURL != "":
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		ts = cc.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, base))
	case opts.Token != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	default:
		return base
	}

	c := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	c.Timeout = opts.Timeout
	return c
}

// HTTPSender posts batches to the attendance API's bulk registration endpoint.
type HTTPSender struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPSender creates a sender posting to url with httpClient.
func NewHTTPSender(url string, httpClient *http.Client, log *zap.Logger) *HTTPSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSender{url: url, httpClient: httpClient, log: log}
}

// Send posts punches as one batch and decodes the server's counters.
// Only 201 Created counts as success.
func (s *HTTPSender) Send(ctx context.Context, batchID string, punches []model.ClassifiedPunch) (model.Outcome, error) {
	if len(punches) == 0 {
		return model.Outcome{}, nil
	}

	body, err := json.Marshal(NewBatch(punches))
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: encoding batch: %w", ErrSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: creating request: %w", ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if batchID != "" {
		req.Header.Set("X-Batch-ID", batchID)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: attendance API request failed: %w", ErrSend, err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: reading response body: %w", ErrSend, err)
	}

	s.log.Debug("attendance API responded",
		zap.String("batch_id", batchID),
		zap.Int("status", resp.StatusCode),
		zap.Int("records", len(punches)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusCreated {
		return model.Outcome{}, fmt.Errorf("%w: %w", ErrSend,
			&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))})
	}

	var out model.Outcome
	if err := json.Unmarshal(respBody, &out); err != nil {
		return model.Outcome{}, fmt.Errorf("%w: decoding response: %w", ErrSend, err)
	}
	return out, nil
}
