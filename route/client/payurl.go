package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// PaymentURI 支付链接
// 固定格式：scheme://host/pay/{recipientId}?asset=&amount=&memo=&trace=
// memo 字段同时充当订单号，这个复用是线上契约的一部分，必须保留
type PaymentURI struct {
	Scheme      string
	Host        string
	RecipientID string
	AssetID     string
	Amount      string
	Memo        string
	TraceID     string
}

// OrderID memo 即订单号
func (p *PaymentURI) OrderID() string {
	return p.Memo
}

// ParsePaymentURI 解析支付链接
// trace 必须是合法 UUID，用于和账本交易关联
func ParsePaymentURI(raw string) (*PaymentURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("解析支付链接失败: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("支付链接缺少 scheme: %s", raw)
	}

	rest, ok := strings.CutPrefix(u.Path, "/pay/")
	if !ok || rest == "" {
		return nil, fmt.Errorf("支付链接路径不是 /pay/{recipient}: %s", u.Path)
	}

	q := u.Query()
	p := &PaymentURI{
		Scheme:      u.Scheme,
		Host:        u.Host,
		RecipientID: rest,
		AssetID:     q.Get("asset"),
		Amount:      q.Get("amount"),
		Memo:        q.Get("memo"),
		TraceID:     q.Get("trace"),
	}
	if p.TraceID != "" {
		if _, err := uuid.Parse(p.TraceID); err != nil {
			return nil, fmt.Errorf("支付链接 trace 不是合法 UUID: %w", err)
		}
	}
	return p, nil
}

// String 组装回字符串形式
func (p *PaymentURI) String() string {
	q := url.Values{}
	if p.AssetID != "" {
		q.Set("asset", p.AssetID)
	}
	if p.Amount != "" {
		q.Set("amount", p.Amount)
	}
	if p.Memo != "" {
		q.Set("memo", p.Memo)
	}
	if p.TraceID != "" {
		q.Set("trace", p.TraceID)
	}
	u := url.URL{
		Scheme:   p.Scheme,
		Host:     p.Host,
		Path:     "/pay/" + p.RecipientID,
		RawQuery: q.Encode(),
	}
	return u.String()
}
