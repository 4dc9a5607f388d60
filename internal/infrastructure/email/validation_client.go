package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/metrics"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const validationEndpoint = "/v3/validations/email"

// NewThrottle returns a token bucket admitting perSecond calls per second with no burst, so no
// one-second window ever sees more than perSecond calls. Callers block in Wait until a slot frees.
func NewThrottle(perSecond float64) ports.Throttle {
	if perSecond <= 0 {
		perSecond = 7
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// ValidationConfig configures the SendGrid email validation client.
type ValidationConfig struct {
	APIKey  string
	Host    string
	Timeout time.Duration
}

// ValidationClient calls the SendGrid email validation API, one address per request.
type ValidationClient struct {
	config   ValidationConfig
	client   *rest.Client
	throttle ports.Throttle
	logger   *logrus.Logger
}

func NewValidationClient(cfg *ValidationConfig, throttle ports.Throttle, logger *logrus.Logger) ports.EmailVerifier {
	c := ValidationConfig{Host: "https://api.sendgrid.com", Timeout: 10 * time.Second}
	if cfg != nil {
		c.APIKey = cfg.APIKey
		if cfg.Host != "" {
			c.Host = cfg.Host
		}
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
	}
	return &ValidationClient{
		config:   c,
		client:   &rest.Client{HTTPClient: &http.Client{Timeout: c.Timeout}},
		throttle: throttle,
		logger:   logger,
	}
}

type validationResponse struct {
	Result *struct {
		Email   string `json:"email"`
		Verdict string `json:"verdict"`
	} `json:"result"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Verify posts one address. 503s, transport failures and API error payloads are transient; a body
// without a result is NotFound.
func (v *ValidationClient) Verify(ctx context.Context, address string) email.VerificationResult {
	res := v.verify(ctx, address)
	metrics.VerificationRequests.WithLabelValues(res.Kind.String()).Inc()
	return res
}

func (v *ValidationClient) verify(ctx context.Context, address string) email.VerificationResult {
	if v.throttle != nil {
		if err := v.throttle.Wait(ctx); err != nil {
			return email.TransientError(fmt.Errorf("throttle wait: %w", err))
		}
	}

	body, err := json.Marshal(map[string]string{"email": address})
	if err != nil {
		return email.TransientError(fmt.Errorf("failed to encode validation request: %w", err))
	}
	req := sendgrid.GetRequest(v.config.APIKey, validationEndpoint, v.config.Host)
	req.Method = rest.Post
	req.Body = body

	resp, err := v.client.SendWithContext(ctx, req)
	if err != nil {
		if v.logger != nil {
			v.logger.WithError(err).Warn("email validation request failed")
		}
		return email.TransientError(fmt.Errorf("validation request failed: %w", err))
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		if v.logger != nil {
			v.logger.WithFields(logrus.Fields{"status_code": resp.StatusCode}).Warn("email validation API unavailable")
		}
		return email.TransientError(fmt.Errorf("validation API returned %d", resp.StatusCode))
	}

	var parsed validationResponse
	if err := json.Unmarshal([]byte(resp.Body), &parsed); err != nil {
		return email.TransientError(fmt.Errorf("failed to decode validation response (status %d): %w", resp.StatusCode, err))
	}
	if len(parsed.Errors) > 0 {
		return email.TransientError(fmt.Errorf("validation API error: %s", parsed.Errors[0].Message))
	}
	if parsed.Result == nil {
		return email.NotFound()
	}
	return email.Found(parsed.Result.Verdict)
}

var _ ports.EmailVerifier = (*ValidationClient)(nil)
