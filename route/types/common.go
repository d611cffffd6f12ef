package types

// PrincipalKind 主体类型
type PrincipalKind int

const (
	// PrincipalUser 普通用户身份（钱包会话提供的私钥种子）
	PrincipalUser PrincipalKind = iota
	// PrincipalBot 应用机器人身份（额外携带会话公钥，用于引导会话）
	PrincipalBot
)

// Principal 本地签名身份
// 构造后不可变，由持有它的客户端独占
type Principal struct {
	Kind PrincipalKind
	// ID 主体的稳定标识（UUID 字符串）
	ID string
	// Seed Ed25519 私钥种子（32 字节）
	Seed []byte
	// SessionPublicKey 机器人会话公钥（仅 PrincipalBot 使用，可为空）
	SessionPublicKey []byte
}

// Valid 校验主体关键字段
func (p *Principal) Valid() bool {
	if p == nil {
		return false
	}
	return p.ID != "" && len(p.Seed) == 32
}

// SignatureHeaders 每个签名请求必须携带的两个头
const (
	HeaderTimestamp = "X-Request-Timestamp"
	HeaderSignature = "X-Request-Signature"
)
