package signing

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swapbot/goswap/route/types"
)

const (
	testPrincipalID = "8bd25bcd-cb63-4b29-8b1e-6d0e57a2de02"
	testSeedHex     = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	testServerPub   = "3c3ed146bdb4bfdef9678ce75be949e24597bd44afb34271843359013c455379"
	testServerID    = "route-server"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	seed, _ := hex.DecodeString(testSeedHex)
	pub, _ := hex.DecodeString(testServerPub)
	s, err := NewSigner(
		&types.Principal{Kind: types.PrincipalBot, ID: testPrincipalID, Seed: seed},
		StaticKeyResolver{testServerID: pub},
	)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

// 固定向量：离线计算的完整签名令牌
func TestSign_GoldenVectors(t *testing.T) {
	s := newTestSigner(t)
	ctx := context.Background()
	uri := "/web3/quote?inputMint=A&outputMint=B&amount=1&source=mixin"

	got, err := s.Sign(ctx, testServerID, "GET", uri, "", 1700000000)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	want := "OGJkMjViY2QtY2I2My00YjI5LThiMWUtNmQwZTU3YTJkZTAyuPsKaud7E9EQBz3UmwNxpeLLRbWpa2ZMoyjrSv3tegE"
	if got != want {
		t.Fatalf("GET 签名不匹配:\n got=%s\nwant=%s", got, want)
	}

	body := `{"payer":"8bd25bcd-cb63-4b29-8b1e-6d0e57a2de02","inputMint":"A","outputMint":"B","inputAmount":"1","payload":"P"}`
	got3, err := s.Sign(ctx, testServerID, "POST", "/web3/swap", body, 1700000000)
	if err != nil {
		t.Fatalf("Sign POST: %v", err)
	}
	want3 := "OGJkMjViY2QtY2I2My00YjI5LThiMWUtNmQwZTU3YTJkZTAy81j7dlmJSMOKbF1r32xn4y2rhItc4kIQnKz9XD4qoVA"
	if got3 != want3 {
		t.Fatalf("POST 签名不匹配:\n got=%s\nwant=%s", got3, want3)
	}
}

// 时间戳参与规范字符串：同一请求不同时刻签名必然不同
func TestSign_TimestampChangesSignature(t *testing.T) {
	s := newTestSigner(t)
	ctx := context.Background()
	uri := "/web3/quote?inputMint=A&outputMint=B&amount=1&source=mixin"

	sig1, err := s.Sign(ctx, testServerID, "GET", uri, "", 1700000000)
	if err != nil {
		t.Fatalf("Sign t1: %v", err)
	}
	sig2, err := s.Sign(ctx, testServerID, "GET", uri, "", 1700000001)
	if err != nil {
		t.Fatalf("Sign t2: %v", err)
	}
	if sig1 == sig2 {
		t.Fatalf("不同时间戳产生了相同签名")
	}
}

// 解码后长度必须恰好是 len(principalID) + 32
func TestSign_DecodedLength(t *testing.T) {
	s := newTestSigner(t)
	sig, err := s.Sign(context.Background(), testServerID, "POST", "/web3/swap", `{"a":1}`, 1712345678)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("签名不是合法的无填充 base64url: %v", err)
	}
	if len(raw) != len(testPrincipalID)+32 {
		t.Fatalf("解码长度 got=%d want=%d", len(raw), len(testPrincipalID)+32)
	}
	if string(raw[:len(testPrincipalID)]) != testPrincipalID {
		t.Fatalf("令牌前缀不是主体 ID")
	}
}

// method 统一大写后参与签名
func TestSign_MethodCaseInsensitive(t *testing.T) {
	s := newTestSigner(t)
	ctx := context.Background()
	upper, err := s.Sign(ctx, testServerID, "GET", "/web3/tokens", "", 1700000000)
	if err != nil {
		t.Fatalf("Sign upper: %v", err)
	}
	lower, err := s.Sign(ctx, testServerID, "get", "/web3/tokens", "", 1700000000)
	if err != nil {
		t.Fatalf("Sign lower: %v", err)
	}
	if upper != lower {
		t.Fatalf("大小写 method 签名不一致")
	}
}

func TestSign_SecretUnavailable(t *testing.T) {
	s := newTestSigner(t)
	_, err := s.Sign(context.Background(), "unknown-server", "GET", "/web3/tokens", "", 1700000000)
	if !errors.Is(err, types.ErrSecretUnavailable) {
		t.Fatalf("期望 ErrSecretUnavailable, got=%v", err)
	}
}

// countingResolver 记录解析次数，并故意放慢以制造并发窗口
type countingResolver struct {
	pub   []byte
	calls atomic.Int64
}

func (r *countingResolver) ResolvePublicKey(_ context.Context, _ string) ([]byte, error) {
	r.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return r.pub, nil
}

// 同一对端的并发签名只允许触发一次密钥推导
func TestSign_ConcurrentDerivationDeduplicated(t *testing.T) {
	seed, _ := hex.DecodeString(testSeedHex)
	pub, _ := hex.DecodeString(testServerPub)
	resolver := &countingResolver{pub: pub}
	s, err := NewSigner(&types.Principal{ID: testPrincipalID, Seed: seed}, resolver)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	var wg sync.WaitGroup
	sigs := make([]string, 16)
	for i := range sigs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig, err := s.Sign(context.Background(), testServerID, "GET", "/web3/tokens", "", 1700000000)
			if err != nil {
				t.Errorf("并发 Sign: %v", err)
				return
			}
			sigs[i] = sig
		}(i)
	}
	wg.Wait()

	if got := resolver.calls.Load(); got != 1 {
		t.Fatalf("密钥推导次数 got=%d want=1", got)
	}
	for i := 1; i < len(sigs); i++ {
		if sigs[i] != sigs[0] {
			t.Fatalf("并发签名结果不一致")
		}
	}
}

func TestNewSigner_Invalid(t *testing.T) {
	if _, err := NewSigner(&types.Principal{ID: "x", Seed: make([]byte, 16)}, StaticKeyResolver{}); !errors.Is(err, types.ErrInvalidKeyMaterial) {
		t.Fatalf("短种子应返回 ErrInvalidKeyMaterial, got=%v", err)
	}
	if _, err := NewSigner(&types.Principal{ID: "", Seed: make([]byte, 32)}, StaticKeyResolver{}); !errors.Is(err, types.ErrInvalidKeyMaterial) {
		t.Fatalf("空 ID 应返回 ErrInvalidKeyMaterial, got=%v", err)
	}
}
