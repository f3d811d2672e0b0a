package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"writemystory/pkg/circuitbreaker"
	"writemystory/pkg/metrics"
	"writemystory/pkg/trace"
)

// ErrTooLarge is returned when a download exceeds MaxBytes
var ErrTooLarge = errors.New("media exceeds size limit")

type Config struct {
	// Twilio credentials; media URLs require basic auth when set
	AccountSID string
	AuthToken  string
	Timeout    time.Duration
	MaxBytes   int64
}

type Download struct {
	ContentType string
	Data        []byte
}

// Fetcher downloads WhatsApp media from the provider
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}

	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.FailureThreshold = 3
	cbConfig.HalfOpenMaxRequests = 2

	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cb: circuitbreaker.NewCircuitBreaker(cbConfig),
	}
}

// Fetch downloads url. contentType is used when the response omits one.
func (f *Fetcher) Fetch(ctx context.Context, url, contentType string) (*Download, error) {
	var dl *Download

	err := f.cb.Execute(func() error {
		start := time.Now()
		status := "success"
		defer func() {
			metrics.RecordMediaFetchLatency(status, time.Since(start))
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			status = "error"
			return err
		}
		if f.cfg.AccountSID != "" {
			req.SetBasicAuth(f.cfg.AccountSID, f.cfg.AuthToken)
		}
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			status = "error"
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			status = strconv.Itoa(resp.StatusCode)
			return fmt.Errorf("media fetch status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
		if err != nil {
			status = "error"
			return err
		}
		if int64(len(data)) > f.cfg.MaxBytes {
			status = "too_large"
			return ErrTooLarge
		}

		ct := resp.Header.Get("Content-Type")
		if ct == "" {
			ct = contentType
		}
		dl = &Download{ContentType: ct, Data: data}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	return dl, nil
}
