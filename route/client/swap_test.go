package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbot/goswap/route/keyx"
	"github.com/swapbot/goswap/route/types"
)

const testServerSeedHex = "201f1e1d1c1b1a191817161514131211100f0e0d0c0b0a090807060504030201"

// verifyingHandler 像真实服务端一样独立验签后再调用 next
// 客户端种子对应的 Ed25519 公钥 + 服务端自己的种子推导出同一份共享密钥
func verifyingHandler(t *testing.T, next http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	serverSeed, err := hex.DecodeString(testServerSeedHex)
	require.NoError(t, err)
	clientSeed, err := hex.DecodeString(testSeedHex)
	require.NoError(t, err)
	clientPub := ed25519.NewKeyFromSeed(clientSeed).Public().(ed25519.PublicKey)
	secret, err := keyx.DeriveSharedSecret(serverSeed, clientPub)
	require.NoError(t, err)

	return func(w http.ResponseWriter, r *http.Request) {
		ts := r.Header.Get(types.HeaderTimestamp)
		sig := r.Header.Get(types.HeaderSignature)
		if ts == "" || sig == "" {
			t.Errorf("缺少签名头: ts=%q sig=%q", ts, sig)
		}
		if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
			t.Errorf("时间戳不是十进制秒: %q", ts)
		}

		body, _ := io.ReadAll(r.Body)
		// 验签读掉了 body，给内层 handler 补回去
		r.Body = io.NopCloser(bytes.NewReader(body))
		mac := hmac.New(sha256.New, secret)
		mac.Write([]byte(ts + r.Method + r.URL.RequestURI() + string(body)))
		want := base64.RawURLEncoding.EncodeToString(append([]byte(testPrincipalID), mac.Sum(nil)...))
		if sig != want {
			t.Errorf("签名验证失败:\n got=%s\nwant=%s", sig, want)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"description":"unauthorized"}}`))
			return
		}
		next(w, r)
	}
}

// 端到端：报价 → 建单，payload 必须原样转发，tx 的 memo 解出非空订单号
func TestExecuteSwap_EndToEnd(t *testing.T) {
	const (
		orderID = "a7d3f1e0-9c41-4b5e-8f2a-1d6b3c9e5a70"
		traceID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/web3/quote", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "A", q.Get("inputMint"))
		assert.Equal(t, "B", q.Get("outputMint"))
		assert.Equal(t, "1", q.Get("amount"))
		assert.Equal(t, "mixin", q.Get("source"))
		w.Write([]byte(`{"data":{"inputMint":"A","inAmount":"1","outputMint":"B","outAmount":"63.667264","payload":"P"}}`))
	})
	mux.HandleFunc("/web3/swap", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateOrderRequest
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &req))
		// 报价凭证必须原样到达建单请求
		assert.Equal(t, "P", req.Payload)
		assert.Equal(t, testPrincipalID, req.Payer)
		assert.Equal(t, "1", req.InputAmount)

		resp := types.CreateOrderResponse{
			Tx: "mixin://route.example.com/pay/recv-1?asset=B&amount=63.667264&memo=" + orderID + "&trace=" + traceID,
			Quote: types.Quote{
				InputMint: "A", InAmount: "1", OutputMint: "B", OutAmount: "63.667264", Payload: "P",
			},
		}
		out, _ := json.Marshal(map[string]any{"data": resp})
		w.Write(out)
	})

	srv := httptest.NewServer(verifyingHandler(t, mux.ServeHTTP))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	result, err := c.ExecuteSwap(context.Background(), "A", "B", "1")
	require.NoError(t, err)

	// 只有服务端给的 outAmount 是展示权威，客户端不得重新推导
	assert.Equal(t, "63.667264", result.Quote.OutAmount)
	assert.Equal(t, orderID, result.OrderID)
	assert.Equal(t, traceID, result.TraceID)
	assert.NotEmpty(t, result.PaymentURI)
}

// 建单失败时报价直接丢弃，错误原样向上
func TestExecuteSwap_CreateFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/web3/quote", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"inputMint":"A","inAmount":"1","outputMint":"B","outAmount":"2","payload":"P"}}`))
	})
	mux.HandleFunc("/web3/swap", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":10615,"description":"invalid swap configuration"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.ExecuteSwap(context.Background(), "A", "B", "1")
	require.Error(t, err)
	assert.True(t, types.IsInvalidSwapConfig(err))
}

func TestListTokens(t *testing.T) {
	srv := httptest.NewServer(verifyingHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web3/tokens", r.URL.Path)
		assert.Equal(t, "mixin", r.URL.Query().Get("source"))
		w.Write([]byte(`{"data":[{"assetId":"A","symbol":"BTC","name":"Bitcoin","icon":"","chain":{"chainId":"c1","symbol":"BTC","name":"Bitcoin","icon":"","decimals":8}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	tokens, err := c.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "BTC", tokens[0].Symbol)
	assert.Equal(t, 8, tokens[0].Chain.Decimals)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(verifyingHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web3/swap/orders/o-1", r.URL.Path)
		w.Write([]byte(`{"data":{"orderId":"o-1","state":"pending","paymentTraceId":"f47ac10b-58cc-4372-a567-0e02b2c3d479"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	order, err := c.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatePending, order.State)
	assert.False(t, order.State.Terminal())
}

// 订单号中的特殊字符必须转义进路径，且签名对转义后的路径依然有效
func TestGetOrder_EscapesOrderID(t *testing.T) {
	srv := httptest.NewServer(verifyingHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web3/swap/orders/o%2F1", r.URL.EscapedPath())
		w.Write([]byte(`{"data":{"orderId":"o/1","state":"pending"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	order, err := c.GetOrder(context.Background(), "o/1")
	require.NoError(t, err)
	assert.Equal(t, "o/1", order.OrderID)
}

func TestGetMarketAndPriceHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/markets/A", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"assetId":"A","symbol":"BTC","currentPrice":"60000.12"}}`))
	})
	mux.HandleFunc("/markets/A/price-history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1W", r.URL.Query().Get("type"))
		w.Write([]byte(`{"data":{"assetId":"A","type":"1W","data":[{"price":"59000","unix":1700000000}]}}`))
	})
	srv := httptest.NewServer(verifyingHandler(t, mux.ServeHTTP))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	market, err := c.GetMarket(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "60000.12", market.CurrentPrice)

	history, err := c.GetPriceHistory(context.Background(), "A", types.PriceRange1W)
	require.NoError(t, err)
	require.Len(t, history.Data, 1)
	assert.Equal(t, "59000", history.Data[0].Price)

	// 非法区间在本地直接拒绝
	_, err = c.GetPriceHistory(context.Background(), "A", types.PriceRange("2Y"))
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
}
