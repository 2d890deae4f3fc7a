// Package botcheck verifies contact form tokens against an external
// verification service (reCAPTCHA-style success plus confidence score).
package botcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nckexchange/exchange/internal/config"
)

// ErrVerificationFailed reports a token the service rejected or scored
// below the configured minimum.
var ErrVerificationFailed = errors.New("bot check verification failed")

// Verifier gates contact form submissions. Verify returns nil for an
// accepted token, ErrVerificationFailed for a rejected one, and any other
// error for a transport failure.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// HTTPVerifier posts tokens to a verify endpoint and applies the minimum
// score. When the feature is disabled every token passes; when enabled, a
// missing token or missing secret fails verification.
type HTTPVerifier struct {
	enabled   bool
	secret    string
	verifyURL string
	minScore  float64
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPVerifier creates a verifier from config.
func NewHTTPVerifier(log *slog.Logger, cfg config.BotCheckConfig) *HTTPVerifier {
	return &HTTPVerifier{
		enabled:   cfg.Enabled,
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		minScore:  cfg.MinScore,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    log.With(slog.String("service", "botcheck")),
	}
}

// Enabled reports whether submissions are gated at all.
func (v *HTTPVerifier) Enabled() bool { return v.enabled }

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) error {
	if !v.enabled {
		return nil
	}
	if strings.TrimSpace(token) == "" || v.secret == "" {
		return ErrVerificationFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verify service returned status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode verify response: %w", err)
	}

	if !result.Success || result.Score < v.minScore {
		v.logger.Warn("bot check rejected token",
			slog.Bool("success", result.Success),
			slog.Float64("score", result.Score),
		)
		return ErrVerificationFailed
	}
	return nil
}
