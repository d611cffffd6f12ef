package client

import (
	"fmt"

	"github.com/swapbot/goswap/pkg/cache"
	"github.com/swapbot/goswap/pkg/ratelimit"
	"github.com/swapbot/goswap/route/signing"
	"github.com/swapbot/goswap/route/types"
)

// Options 客户端选项
type Options struct {
	Transport TransportConfig
	// Resolver 对端公钥解析器；为空时用主体自带的会话公钥构造静态解析器
	Resolver signing.KeyResolver
	// Referral 建单时附带的推荐人标识（可选）
	Referral string
	// EnableRateLimit 开启客户端限速
	EnableRateLimit bool
	// DisableCache 关闭 token/行情本地缓存（测试用）
	DisableCache bool
}

// Client 兑换服务客户端
// 持有签名器与共享密钥缓存，天生按主体隔离，不存在跨会话泄漏
type Client struct {
	transport *transport
	payer     string
	referral  string

	tokenCache  *cache.TokenListCache
	marketCache *cache.MarketCache
}

// New 创建客户端
func New(principal *types.Principal, opts Options) (*Client, error) {
	resolver := opts.Resolver
	if resolver == nil {
		// 机器人身份自带会话公钥，直接作为对端公钥引导
		if len(principal.SessionPublicKey) == 0 {
			return nil, fmt.Errorf("%w: 未提供解析器且主体没有会话公钥", types.ErrSecretUnavailable)
		}
		resolver = signing.StaticKeyResolver{
			opts.Transport.CounterpartyID: principal.SessionPublicKey,
		}
	}

	signer, err := signing.NewSigner(principal, resolver)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Manager
	if opts.EnableRateLimit {
		limiter = ratelimit.NewManager()
	}

	c := &Client{
		transport: newTransport(opts.Transport, signer, limiter),
		payer:     principal.ID,
		referral:  opts.Referral,
	}
	if !opts.DisableCache {
		c.tokenCache = cache.NewTokenListCache()
		c.marketCache = cache.NewMarketCache()
	}
	return c, nil
}

// Payer 付款方标识（即主体 ID）
func (c *Client) Payer() string {
	return c.payer
}
