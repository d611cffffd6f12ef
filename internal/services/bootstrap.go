package services

import (
	"fmt"

	"github.com/swapbot/goswap/pkg/config"
	"github.com/swapbot/goswap/pkg/secretstore"
	"github.com/swapbot/goswap/route/client"
	"github.com/swapbot/goswap/route/signing"
	"github.com/swapbot/goswap/route/types"
)

// BuildClient 按配置装配兑换客户端
// 主体材料优先取密钥库，其次取配置；对端公钥可选（机器人主体可用自带会话公钥）
func BuildClient(cfg *config.Config) (*client.Client, error) {
	principal, err := LoadPrincipal(cfg)
	if err != nil {
		return nil, err
	}

	var resolver signing.KeyResolver
	if cfg.Service.CounterpartyPublicKey != "" {
		pub, err := secretstore.ParseKey(cfg.Service.CounterpartyPublicKey)
		if err != nil {
			return nil, fmt.Errorf("解析对端公钥失败: %w", err)
		}
		resolver = signing.StaticKeyResolver{cfg.Service.CounterpartyID: pub}
	}

	return client.New(principal, client.Options{
		Transport: client.TransportConfig{
			BaseURL:        cfg.Service.BaseURL,
			CounterpartyID: cfg.Service.CounterpartyID,
			Timeout:        cfg.Service.Timeout,
			RetryCount:     cfg.Service.RetryCount,
			RetryDelay:     cfg.Service.RetryDelay,
		},
		Resolver:        resolver,
		Referral:        cfg.Service.Referral,
		EnableRateLimit: cfg.Service.EnableRateLimit,
	})
}

// LoadPrincipal 加载签名主体：密钥库里有就用密钥库，否则取配置
func LoadPrincipal(cfg *config.Config) (*types.Principal, error) {
	if cfg.Keystore.Path != "" {
		key, err := secretstore.ParseKey(cfg.Keystore.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("解析密钥库加密密钥失败: %w", err)
		}
		store, err := secretstore.Open(secretstore.OpenOptions{
			Path:          cfg.Keystore.Path,
			EncryptionKey: key,
			ReadOnly:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("打开密钥库失败: %w", err)
		}
		defer store.Close()

		p, err := store.LoadPrincipal()
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		// 密钥库为空则回落到配置
	}

	seed, err := secretstore.ParseKey(cfg.Principal.Seed)
	if err != nil {
		return nil, fmt.Errorf("解析主体种子失败: %w", err)
	}
	session, err := secretstore.ParseKey(cfg.Principal.SessionPublicKey)
	if err != nil {
		return nil, fmt.Errorf("解析会话公钥失败: %w", err)
	}

	kind := types.PrincipalBot
	if cfg.Principal.Kind == "user" {
		kind = types.PrincipalUser
	}
	return &types.Principal{
		Kind:             kind,
		ID:               cfg.Principal.ID,
		Seed:             seed,
		SessionPublicKey: session,
	}, nil
}
