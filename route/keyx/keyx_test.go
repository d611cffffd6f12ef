package keyx

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/swapbot/goswap/route/types"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	return b
}

// 固定向量：两个固定种子分别推导，结果必须相同且与离线计算的期望值逐字节一致
func TestDeriveSharedSecret_GoldenVector(t *testing.T) {
	seedA := mustHex(t, "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	seedB := mustHex(t, "201f1e1d1c1b1a191817161514131211100f0e0d0c0b0a090807060504030201")
	pubA := mustHex(t, "79b5562e8fe654f94078b112e8a98ba7901f853ae695bed7e0e3910bad049664")
	pubB := mustHex(t, "3c3ed146bdb4bfdef9678ce75be949e24597bd44afb34271843359013c455379")
	want := mustHex(t, "6036252f0f6d5a3b43bc8e0bc791de774f414f6d8ea49a5330d3e8efd33cc135")

	// 确认测试向量内部自洽：公钥确实是对应种子的 Ed25519 公钥
	if got := ed25519.NewKeyFromSeed(seedA).Public().(ed25519.PublicKey); !bytes.Equal(got, pubA) {
		t.Fatalf("pubA 向量不自洽: got=%x", got)
	}
	if got := ed25519.NewKeyFromSeed(seedB).Public().(ed25519.PublicKey); !bytes.Equal(got, pubB) {
		t.Fatalf("pubB 向量不自洽: got=%x", got)
	}

	secAB, err := DeriveSharedSecret(seedA, pubB)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(A,B): %v", err)
	}
	secBA, err := DeriveSharedSecret(seedB, pubA)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(B,A): %v", err)
	}
	if !bytes.Equal(secAB, want) {
		t.Fatalf("共享密钥与固定向量不一致: got=%x want=%x", secAB, want)
	}
	if !bytes.Equal(secAB, secBA) {
		t.Fatalf("双向推导不一致: AB=%x BA=%x", secAB, secBA)
	}
}

func TestDeriveSharedSecret_Deterministic(t *testing.T) {
	seed := mustHex(t, "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	pub := mustHex(t, "3c3ed146bdb4bfdef9678ce75be949e24597bd44afb34271843359013c455379")

	first, err := DeriveSharedSecret(seed, pub)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := DeriveSharedSecret(seed, pub)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("同一输入两次推导不一致")
	}
	if len(first) != 32 {
		t.Fatalf("密钥长度 got=%d want=32", len(first))
	}
}

func TestDeriveSharedSecret_InvalidKeyMaterial(t *testing.T) {
	good := make([]byte, 32)
	cases := []struct {
		name string
		seed []byte
		pub  []byte
	}{
		{"种子过短", make([]byte, 31), good},
		{"种子过长", make([]byte, 33), good},
		{"公钥过短", good, make([]byte, 16)},
		{"公钥为空", good, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeriveSharedSecret(tc.seed, tc.pub)
			if !errors.Is(err, types.ErrInvalidKeyMaterial) {
				t.Fatalf("期望 ErrInvalidKeyMaterial, got=%v", err)
			}
		})
	}
}

// clamp 的三个位操作逐一验证
func TestClampScalar_Bits(t *testing.T) {
	seed := bytes.Repeat([]byte{0xff}, 32)
	s := clampScalar(seed)
	if s[0]&7 != 0 {
		t.Fatalf("低 3 位未清零: %08b", s[0])
	}
	if s[31]&128 != 0 {
		t.Fatalf("最高位未清零: %08b", s[31])
	}
	if s[31]&64 == 0 {
		t.Fatalf("次高位未置位: %08b", s[31])
	}
}
