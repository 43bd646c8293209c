package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/pokerdex/internal/platform/logging"
	"github.com/riskibarqy/pokerdex/internal/platform/resilience"
	"github.com/riskibarqy/pokerdex/internal/usecase"
)

const (
	eventMemberJoined = "group.member_joined"
	eventGamePosted   = "game.posted"

	maxLoggedBody = 4096
)

var errWebhookTransient = crerr.New("webhook transient failure")

type WebhookPublisherConfig struct {
	URL            string
	Secret         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookPublisher delivers domain events to a configured HTTP endpoint.
// Delivery is best effort: failures are logged and absorbed so event
// fan-out never fails the operation that produced the event.
type WebhookPublisher struct {
	client         *fasthttp.Client
	url            string
	secret         string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	now            func() time.Time
}

func NewWebhookPublisher(cfg WebhookPublisherConfig) *WebhookPublisher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookPublisher{
		client:         &fasthttp.Client{},
		url:            strings.TrimSpace(cfg.URL),
		secret:         strings.TrimSpace(cfg.Secret),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

var _ usecase.EventPublisher = (*WebhookPublisher)(nil)

func (p *WebhookPublisher) MemberJoined(ctx context.Context, groupID, userID string) {
	p.publish(ctx, eventPayload{
		Event:      eventMemberJoined,
		OccurredAt: p.now().UTC(),
		GroupID:    groupID,
		UserID:     userID,
	})
}

func (p *WebhookPublisher) GamePosted(ctx context.Context, gameID, groupID string) {
	p.publish(ctx, eventPayload{
		Event:      eventGamePosted,
		OccurredAt: p.now().UTC(),
		GameID:     gameID,
		GroupID:    groupID,
	})
}

func (p *WebhookPublisher) publish(ctx context.Context, payload eventPayload) {
	if err := p.deliver(ctx, payload); err != nil {
		p.logger.WarnContext(ctx, "webhook delivery failed", "event", payload.Event, "error", err)
	}
}

func (p *WebhookPublisher) deliver(ctx context.Context, payload eventPayload) error {
	endpoint, err := validateHTTPURL(p.url)
	if err != nil {
		return crerr.Wrap(err, "invalid webhook URL")
	}

	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			return fmt.Errorf("webhook endpoint is temporarily unavailable: %w", err)
		}
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal event payload")
	}
	bodyText := truncateForLog(string(body), maxLoggedBody)
	curlPreview := buildWebhookCurlPreview(endpoint, bodyText, p.secret != "")

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("webhook.url", endpoint),
			attribute.String("webhook.event", payload.Event),
			attribute.String("webhook.request_body", bodyText),
			attribute.String("webhook.request_curl_preview", curlPreview),
		)
	}
	p.logger.InfoContext(ctx, "webhook publish request", "event", payload.Event, "url", endpoint, "curl_preview", curlPreview)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("User-Agent", "pokerdex-webhook/1.0")
	if p.secret != "" {
		req.Header.Set("X-Webhook-Secret", p.secret)
	}
	req.SetBody(body)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		callErr := fmt.Errorf("%w: post webhook url=%s: %v", errWebhookTransient, endpoint, err)
		p.recordCircuitResult(callErr)
		return callErr
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		raw := truncateForLog(strings.TrimSpace(string(resp.Body())), maxLoggedBody)
		if isRetryableStatus(status) {
			callErr := fmt.Errorf("%w: post webhook status=%d url=%s body=%s", errWebhookTransient, status, endpoint, raw)
			p.recordCircuitResult(callErr)
			return callErr
		}
		callErr := crerr.Newf("post webhook status=%d url=%s body=%s", status, endpoint, raw)
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.logger.InfoContext(ctx, "webhook event published", "event", payload.Event, "status_code", status)
	p.recordCircuitResult(nil)
	return nil
}

func (p *WebhookPublisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err == nil {
		p.breaker.RecordSuccess()
		return
	}
	if crerr.Is(err, errWebhookTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

type eventPayload struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	GroupID    string    `json:"group_id,omitempty"`
	GameID     string    `json:"game_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return candidate, nil
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func buildWebhookCurlPreview(endpoint, body string, withSecret bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	appendPart(shellQuote(endpoint))
	appendPart("-H")
	appendPart(shellQuote("Content-Type: application/json"))
	if withSecret {
		appendPart("-H")
		appendPart(shellQuote("X-Webhook-Secret: ***"))
	}
	appendPart("-d")
	appendPart(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}
