// Package marketplace реализует клиент внешнего API маркетплейса.
//
// Все ошибки клиента имеют тип *errors.Error: категория определяется один раз здесь,
// по HTTP-статусу или ошибке транспорта, и дальше не переопределяется.
// GET-запросы повторяются с экспоненциальной задержкой, изменяющие запросы выполняются один раз.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/internal/metrics"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// MaxPageSize максимальный размер страницы, который принимает маркетплейс
	MaxPageSize = 200

	// maxResponseSize ограничение на размер тела ответа (10MB)
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBody сколько байт тела ошибки попадает в сообщение
	maxErrorBody = 512
)

// Config настройки клиента
type Config struct {
	BaseURL        string
	Integration    string // часть заголовка User-Agent
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RateLimit      float64 // запросов в секунду, 0 без ограничения
	RateBurst      int
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.trendyol.com/sapigw",
		Integration:    "SelfIntegration",
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RateLimit:      10,
		RateBurst:      5,
	}
}

// Client клиент API маркетплейса
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     interfaces.LoggerPort
}

// NewClient создает клиент маркетплейса
func NewClient(cfg Config, logger interfaces.LoggerPort) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// request описание одного вызова API
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
}

// get выполняет GET-запрос с повторами для временных ошибок
func (c *Client) get(ctx context.Context, creds models.Credentials, req request, out interface{}) error {
	req.method = http.MethodGet

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := c.do(ctx, creds, req, out)
		if err != nil && !apperrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.MarketplaceRetries.WithLabelValues(req.op, string(apperrors.KindOf(err))).Inc()
		c.logger.WarnWithContext(ctx, "Повтор запроса к маркетплейсу",
			"operation", req.op,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err.Error(),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	// RetryNotify возвращает ctx.Err(), если контекст отменен во время ожидания
	return apperrors.Wrap(apperrors.KindTimeout, req.op, err)
}

// send выполняет изменяющий запрос ровно один раз
func (c *Client) send(ctx context.Context, creds models.Credentials, req request) error {
	return c.do(ctx, creds, req, nil)
}

// do выполняет один HTTP-запрос и переводит результат в типизированную ошибку
func (c *Client) do(ctx context.Context, creds models.Credentials, req request, out interface{}) error {
	if !creds.Valid() {
		return apperrors.New(apperrors.KindAuthentication, req.op, "marketplace credentials are not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindTimeout, req.op, fmt.Errorf("rate limiter wait: %w", err))
	}

	u := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, req.op, fmt.Errorf("failed to marshal request body: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, req.op, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.SetBasicAuth(creds.APIKey, creds.APISecret)
	httpReq.Header.Set("User-Agent", fmt.Sprintf("%s - %s", creds.SellerID, c.cfg.Integration))
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.MarketplaceDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MarketplaceRequests.WithLabelValues(req.op, "transport_error").Inc()
		return transportError(req.op, err)
	}
	defer resp.Body.Close()

	metrics.MarketplaceRequests.WithLabelValues(req.op, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return transportError(req.op, fmt.Errorf("failed to read response body: %w", err))
	}
	if len(data) > maxResponseSize {
		return apperrors.Newf(apperrors.KindUnavailable, req.op, "response body too large: %d bytes", len(data))
	}

	c.logger.DebugWithContext(ctx, "Ответ маркетплейса",
		"operation", req.op,
		"method", req.method,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.FromHTTPStatus(req.op, resp.StatusCode, truncate(string(data), maxErrorBody))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, req.op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func transportError(op string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(apperrors.KindTimeout, op, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.KindTimeout, op, err)
	}
	return apperrors.Wrap(apperrors.KindUnavailable, op, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
