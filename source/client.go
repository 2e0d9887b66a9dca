package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/logging"
	"github.com/rushteam/ratingkit/pkg/metrics"
)

// 上游请求结果，用于指标 outcome 标签
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// maxBodySize 单个上游响应体最大字节数（/reviews/ 为全量列表，留足余量）
const maxBodySize = 32 << 20

// BreakerConfig 熔断器配置，零值字段使用默认值。
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`  // 半开状态允许的并发探测请求数
	Interval     time.Duration `koanf:"interval"`      // 关闭状态下计数清零周期
	Timeout      time.Duration `koanf:"timeout"`       // 打开后多久进入半开
	MinRequests  uint32        `koanf:"min_requests"`  // 触发熔断前的最少请求数
	FailureRatio float64       `koanf:"failure_ratio"` // 失败率阈值
}

// DefaultBreakerConfig 默认熔断配置：至少 10 次请求且失败率 >= 60% 时打开，30 秒后半开。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.MaxRequests == 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.MinRequests == 0 {
		c.MinRequests = d.MinRequests
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = d.FailureRatio
	}
	return c
}

// Config 单个存储的连接配置
type Config struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// statusError 上游返回了非 2xx 状态码
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status=%d, body=%s", e.Code, e.Body)
}

// client 是带超时与熔断的 HTTP GET 客户端，每个存储一个实例。
type client struct {
	variant core.Variant
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	name    string
}

func newClient(variant core.Variant, cfg Config, httpClient *http.Client) *client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	bc := cfg.Breaker.withDefaults()
	name := string(variant) + "-store"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureRatio
		},
		// 只有网络错误与 5xx 计为失败；404 等表示资源不存在，属于正常应答
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *statusError
			if errors.As(err, &se) {
				return se.Code < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &client{
		variant: variant,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		cb:      cb,
		name:    name,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// get 请求 path 并返回响应体。resource 仅用于指标与日志。
func (c *client) get(ctx context.Context, resource, path string) ([]byte, error) {
	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, path)
	})
	metrics.RecordUpstream(string(c.variant), resource, outcomeOf(err), time.Since(start))
	return body, err
}

func (c *client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{Code: resp.StatusCode, Body: string(b)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return outcomeRejected
	}
	var se *statusError
	if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
		return outcomeNotFound
	}
	return outcomeError
}

// fetchEntity 获取单个实体。4xx、空 body（""、null、{}）-> NOT_FOUND；网络失败、超时、5xx、熔断或响应无法解析 -> UNAVAILABLE。
func fetchEntity[T any](ctx context.Context, c *client, resource, path string) (*T, error) {
	body, err := c.get(ctx, resource, path)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
			return nil, core.WrapDomainError(core.ModuleSource, core.ErrorCodeNotFound,
				fmt.Sprintf("%s %s not found", c.variant, resource), err)
		}
		return nil, core.WrapDomainError(core.ModuleSource, core.ErrorCodeUnavailable,
			fmt.Sprintf("%s %s unavailable", c.variant, resource), err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeNotFound,
			fmt.Sprintf("%s %s not found: empty response", c.variant, resource))
	}
	var v *T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, core.WrapDomainError(core.ModuleSource, core.ErrorCodeUnavailable,
			fmt.Sprintf("%s %s: undecodable response", c.variant, resource), err)
	}
	if v == nil || isEmptyEntity(v) {
		return nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeNotFound,
			fmt.Sprintf("%s %s not found: empty response", c.variant, resource))
	}
	return v, nil
}

// isEmptyEntity 2xx 但 body 为 {} 或缺少 id 时视为不存在
func isEmptyEntity(v any) bool {
	e, ok := v.(interface{ ID() int64 })
	return ok && e.ID() == 0
}

// fetchHistory 获取评分列表，任何失败都降级为空列表并记录。
func fetchHistory(ctx context.Context, c *client, kind, path string) []core.RatingRecord {
	body, err := c.get(ctx, kind+"_history", path)
	if err == nil {
		var records []core.RatingRecord
		if err = json.Unmarshal(body, &records); err == nil {
			return records
		}
	}
	return degraded(ctx, c.variant, kind, err)
}

func degraded(ctx context.Context, variant core.Variant, kind string, err error) []core.RatingRecord {
	metrics.HistoryDegraded.WithLabelValues(string(variant), kind).Inc()
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("variant", string(variant)).
		Str("kind", kind).
		Msg("history fetch degraded to empty")
	return []core.RatingRecord{}
}
