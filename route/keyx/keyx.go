package keyx

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"

	"github.com/swapbot/goswap/route/types"
)

// DeriveSharedSecret 由本地 Ed25519 种子与对端 Ed25519 公钥推导 X25519 共享密钥
//
// 步骤必须与对端完全一致：
//  1. 种子做 SHA-512，取前 32 字节并做标准 Curve25519 clamp，得到 Montgomery 标量
//  2. 对端 Ed25519 公钥点转换为 Montgomery 曲线的 u 坐标
//  3. X25519 标量乘得到 32 字节共享密钥
//
// 任何偏差（比如用 SHA-256、跳过点转换）都不会在本地报错，
// 只会在服务端验签时静默失败，所以该函数必须有固定向量测试覆盖
func DeriveSharedSecret(localSeed, remotePublicKey []byte) ([]byte, error) {
	if len(localSeed) != 32 {
		return nil, fmt.Errorf("%w: 种子长度 %d != 32", types.ErrInvalidKeyMaterial, len(localSeed))
	}
	if len(remotePublicKey) != 32 {
		return nil, fmt.Errorf("%w: 公钥长度 %d != 32", types.ErrInvalidKeyMaterial, len(remotePublicKey))
	}

	scalar := clampScalar(localSeed)

	point, err := new(edwards25519.Point).SetBytes(remotePublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: 公钥不是合法曲线点: %v", types.ErrInvalidKeyMaterial, err)
	}
	montgomery := point.BytesMontgomery()

	secret, err := curve25519.X25519(scalar, montgomery)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519 运算失败: %v", types.ErrInvalidKeyMaterial, err)
	}
	return secret, nil
}

// clampScalar SHA-512 前 32 字节 + 标准 clamp
// 清低 3 位、清最高位、置次高位
func clampScalar(seed []byte) []byte {
	h := sha512.Sum512(seed)
	scalar := make([]byte, 32)
	copy(scalar, h[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar
}
