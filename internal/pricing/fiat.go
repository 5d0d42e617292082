package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/retry"
)

// FiatSource returns the USD rate of an asset.
type FiatSource interface {
	USDRate(ctx context.Context, assetID string) (float64, error)
}

// HTTPFiatSource reads rates from a CoinGecko-compatible simple-price endpoint.
type HTTPFiatSource struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// FiatOption configures an HTTPFiatSource.
type FiatOption func(*HTTPFiatSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) FiatOption {
	return func(s *HTTPFiatSource) {
		s.httpClient = client
	}
}

// WithFiatRetry sets the retry policy for rate lookups.
func WithFiatRetry(maxRetries int, backoff time.Duration) FiatOption {
	return func(s *HTTPFiatSource) {
		s.maxRetries = maxRetries
		s.retryBackoff = backoff
	}
}

// WithFiatLogger sets the logger.
func WithFiatLogger(logger *zap.Logger) FiatOption {
	return func(s *HTTPFiatSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewHTTPFiatSource(baseURL string, opts ...FiatOption) *HTTPFiatSource {
	s := &HTTPFiatSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// USDRate fetches GET {base}/simple/price?ids={assetID}&vs_currencies=usd.
func (s *HTTPFiatSource) USDRate(ctx context.Context, assetID string) (float64, error) {
	if assetID == "" {
		return 0, fmt.Errorf("%w: fiat asset id is required", model.ErrValidation)
	}

	query := url.Values{}
	query.Set("ids", assetID)
	query.Set("vs_currencies", "usd")
	endpoint := s.baseURL + "/simple/price?" + query.Encode()

	var rate float64
	err := retry.Do(ctx, s.maxRetries, s.retryBackoff, func(ctx context.Context) error {
		var err error
		rate, err = s.fetch(ctx, endpoint, assetID)
		if err != nil {
			s.logger.Debug("fiat rate attempt failed", zap.String("asset", assetID), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return rate, nil
}

func (s *HTTPFiatSource) fetch(ctx context.Context, endpoint, assetID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fiat rate: %w: %w", model.ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("fiat rate: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fiat rate: %w: status %d: %s", model.ErrRemote, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("fiat rate: %w: %v", model.ErrDecode, err)
	}
	rate, ok := payload[assetID]["usd"]
	if !ok {
		return 0, fmt.Errorf("fiat rate: %w: no usd rate for %s", model.ErrRemote, assetID)
	}
	return rate, nil
}
