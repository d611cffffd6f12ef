package signing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/swapbot/goswap/route/keyx"
	"github.com/swapbot/goswap/route/types"
)

// KeyResolver 解析对端的 Ed25519 公钥（32 字节）
// 解析可能需要一次网络往返，因此带 context
type KeyResolver interface {
	ResolvePublicKey(ctx context.Context, counterpartyID string) ([]byte, error)
}

// StaticKeyResolver 静态公钥表（配置里直接给出对端公钥时使用）
type StaticKeyResolver map[string][]byte

// ResolvePublicKey 查表解析
func (r StaticKeyResolver) ResolvePublicKey(_ context.Context, counterpartyID string) ([]byte, error) {
	pub, ok := r[counterpartyID]
	if !ok {
		return nil, fmt.Errorf("%w: 未知对端 %s", types.ErrSecretUnavailable, counterpartyID)
	}
	return pub, nil
}

// Signer 请求签名器
// 共享密钥缓存归本实例独有，进程内不过期，也绝不跨实例共享
type Signer struct {
	principal *types.Principal
	resolver  KeyResolver

	mu      sync.RWMutex
	secrets map[string][]byte
	group   singleflight.Group
}

// NewSigner 创建签名器
func NewSigner(principal *types.Principal, resolver KeyResolver) (*Signer, error) {
	if !principal.Valid() {
		return nil, fmt.Errorf("%w: 主体缺少 ID 或种子长度不是 32", types.ErrInvalidKeyMaterial)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: 缺少公钥解析器", types.ErrSecretUnavailable)
	}
	return &Signer{
		principal: principal,
		resolver:  resolver,
		secrets:   make(map[string][]byte),
	}, nil
}

// CanonicalString 构造请求的规范字符串
// 时间戳(十进制秒) + 大写 method + uri(path+query，不含 fragment) + 原始 body
// 时间戳参与签名，同一请求在不同时刻的签名必然不同
func CanonicalString(timestamp int64, method, uri, body string) string {
	return strconv.FormatInt(timestamp, 10) + strings.ToUpper(method) + uri + body
}

// Sign 对一个请求产生认证令牌
// HMAC-SHA256(共享密钥, 规范字符串)，令牌 = base64url_nopad(主体ID ‖ 摘要)
func (s *Signer) Sign(ctx context.Context, counterpartyID, method, uri, body string, timestamp int64) (string, error) {
	secret, err := s.sharedSecret(ctx, counterpartyID)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(CanonicalString(timestamp, method, uri, body)))
	digest := mac.Sum(nil)

	token := make([]byte, 0, len(s.principal.ID)+len(digest))
	token = append(token, []byte(s.principal.ID)...)
	token = append(token, digest...)
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// PrincipalID 签名主体标识
func (s *Signer) PrincipalID() string {
	return s.principal.ID
}

// sharedSecret 取缓存的共享密钥，miss 时推导并写回
// 同一对端的并发 miss 由 singleflight 合并为一次推导
func (s *Signer) sharedSecret(ctx context.Context, counterpartyID string) ([]byte, error) {
	s.mu.RLock()
	secret, ok := s.secrets[counterpartyID]
	s.mu.RUnlock()
	if ok {
		return secret, nil
	}

	v, err, _ := s.group.Do(counterpartyID, func() (interface{}, error) {
		// double check：等待期间可能已有人写入
		s.mu.RLock()
		cached, ok := s.secrets[counterpartyID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		pub, err := s.resolver.ResolvePublicKey(ctx, counterpartyID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrSecretUnavailable, err)
		}
		derived, err := keyx.DeriveSharedSecret(s.principal.Seed, pub)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.secrets[counterpartyID] = derived
		s.mu.Unlock()
		return derived, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
