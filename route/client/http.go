package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/swapbot/goswap/pkg/ratelimit"
	"github.com/swapbot/goswap/route/signing"
	"github.com/swapbot/goswap/route/types"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	BaseURL string
	// CounterpartyID 对端服务身份，用于共享密钥推导
	CounterpartyID string
	// Timeout 单次请求超时，默认 10s
	Timeout time.Duration
	// RetryCount 重试次数（不含首次请求），默认 3
	RetryCount int
	// RetryDelay 固定重试间隔（不做指数退避），默认 1s
	RetryDelay time.Duration
}

func (c *TransportConfig) withDefaults() TransportConfig {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.RetryCount < 0 {
		out.RetryCount = 0
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = time.Second
	}
	return out
}

// transport 签名 HTTP 传输层
// 重试只针对传输层失败和 5xx；4xx 是终态错误立即返回
type transport struct {
	http           *resty.Client
	signer         *signing.Signer
	counterpartyID string
	retryCount     int
	retryDelay     time.Duration
	limiter        *ratelimit.Manager
	// now 可被测试替换
	now func() time.Time
}

func newTransport(cfg TransportConfig, signer *signing.Signer, limiter *ratelimit.Manager) *transport {
	cfg = cfg.withDefaults()
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "goswap-route")

	return &transport{
		http:           rc,
		signer:         signer,
		counterpartyID: cfg.CounterpartyID,
		retryCount:     cfg.RetryCount,
		retryDelay:     cfg.RetryDelay,
		limiter:        limiter,
		now:            time.Now,
	}
}

// request 发出一次签名请求并返回信封里的 data
// query 会并入规范 URI；body 序列化为稳定 JSON 后参与签名
func (t *transport) request(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	uri := path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	var bodyStr string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "序列化请求体失败")
		}
		bodyStr = string(raw)
	}

	var lastErr error
	for attempt := 0; attempt <= t.retryCount; attempt++ {
		if attempt > 0 {
			// 固定间隔重试
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.retryDelay):
			}
		}

		data, err := t.doOnce(ctx, method, uri, bodyStr)
		if err == nil {
			return data, nil
		}
		lastErr = err

		// 密钥材料非法是致命错误，不重试
		if errors.Is(err, types.ErrInvalidKeyMaterial) {
			return nil, err
		}
		// 4xx（含当作错误处理的 202）是终态，立即返回
		if apiErr, ok := types.AsApiError(err); ok && !apiErr.Retryable() {
			return nil, err
		}
		// 其余（网络错误、5xx、密钥解析失败）按固定间隔继续重试
	}
	return nil, lastErr
}

// doOnce 单次请求：限速 → 签名 → 发送 → 解信封
// 每次尝试都取新的时间戳并重新签名
func (t *transport) doOnce(ctx context.Context, method, uri, body string) (json.RawMessage, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx, method); err != nil {
			return nil, err
		}
	}

	ts := t.now().Unix()
	sig, err := t.signer.Sign(ctx, t.counterpartyID, method, uri, body, ts)
	if err != nil {
		return nil, err
	}

	req := t.http.R().
		SetContext(ctx).
		SetHeader(types.HeaderTimestamp, strconv.FormatInt(ts, 10)).
		SetHeader(types.HeaderSignature, sig)
	if body != "" {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(strings.ToUpper(method), uri)
	if err != nil {
		return nil, errors.Wrapf(err, "请求失败 %s %s", method, uri)
	}
	return parseEnvelope(resp)
}

// envelope 服务端响应信封：成功 {data}，失败 {error:{code,description,extra}}
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

type errorBody struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Extra       *struct {
		Range *types.AmountRange `json:"range"`
	} `json:"extra"`
}

// parseEnvelope 解开响应信封
// 202 对这套 API 来说仍然是错误，不能当成功处理
func parseEnvelope(resp *resty.Response) (json.RawMessage, error) {
	ok := resp.IsSuccess() && resp.StatusCode() != http.StatusAccepted

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if ok {
			return nil, errors.Wrapf(err, "解析响应失败: %s", resp.Body())
		}
		// 非 2xx 且没有合法信封：按裸 ApiError 处理
		return nil, &types.ApiError{
			Status:      resp.StatusCode(),
			Code:        resp.StatusCode(),
			Description: strings.TrimSpace(string(resp.Body())),
		}
	}

	if !ok || env.Error != nil {
		apiErr := &types.ApiError{Status: resp.StatusCode()}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Description = env.Error.Description
			if env.Error.Extra != nil {
				apiErr.Range = env.Error.Extra.Range
			}
		} else {
			apiErr.Code = resp.StatusCode()
			apiErr.Description = http.StatusText(resp.StatusCode())
		}
		return nil, apiErr
	}
	return env.Data, nil
}

// unmarshalData data 字段再解一层
func unmarshalData(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "解析 data 失败: %s", data)
	}
	return nil
}
