package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/swapbot/goswap/route/types"
)

// Store 静态加密的本地 KV（Badger）
// 加密由 Badger 选项提供（value log + key registry），不在本层做
type Store struct {
	db *badger.DB
}

// OpenOptions 打开选项
type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 字节；为 nil 时不加密（不推荐）
	ReadOnly      bool
}

// Open 打开密钥库
func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: 缺少路径")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式下 Badger 要求 index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close 关闭密钥库
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetString 读取字符串值
func (s *Store) GetString(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("secretstore: 未打开")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return "", false, errors.New("secretstore: key 为空")
	}
	var out string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

// SetString 写入字符串值
func (s *Store) SetString(key string, val string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: 未打开")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("secretstore: key 为空")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

// 主体材料的存储 key
const (
	keyPrincipalKind    = "principal:kind"
	keyPrincipalID      = "principal:id"
	keyPrincipalSeed    = "principal:seed"
	keySessionPublicKey = "principal:session_public_key"
)

// SavePrincipal 保存主体材料
// 种子和公钥以 hex 形式落盘
func (s *Store) SavePrincipal(p *types.Principal) error {
	if !p.Valid() {
		return errors.New("secretstore: 主体材料不完整")
	}
	kind := "user"
	if p.Kind == types.PrincipalBot {
		kind = "bot"
	}
	pairs := map[string]string{
		keyPrincipalKind: kind,
		keyPrincipalID:   p.ID,
		keyPrincipalSeed: hex.EncodeToString(p.Seed),
	}
	if len(p.SessionPublicKey) > 0 {
		pairs[keySessionPublicKey] = hex.EncodeToString(p.SessionPublicKey)
	}
	for k, v := range pairs {
		if err := s.SetString(k, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadPrincipal 读取主体材料
// 库里没有主体时返回 (nil, nil)
func (s *Store) LoadPrincipal() (*types.Principal, error) {
	id, ok, err := s.GetString(keyPrincipalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	seedRaw, ok, err := s.GetString(keyPrincipalSeed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("secretstore: 主体缺少种子")
	}
	seed, err := ParseKey(seedRaw)
	if err != nil {
		return nil, fmt.Errorf("secretstore: 种子解析失败: %w", err)
	}

	p := &types.Principal{Kind: types.PrincipalUser, ID: id, Seed: seed}
	if kind, ok, _ := s.GetString(keyPrincipalKind); ok && kind == "bot" {
		p.Kind = types.PrincipalBot
	}
	if pubRaw, ok, _ := s.GetString(keySessionPublicKey); ok && pubRaw != "" {
		pub, err := ParseKey(pubRaw)
		if err != nil {
			return nil, fmt.Errorf("secretstore: 会话公钥解析失败: %w", err)
		}
		p.SessionPublicKey = pub
	}
	return p, nil
}

// ParseKey 解析 32 字节密钥（hex 或 base64），输入为空返回 nil
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	rawHex := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("密钥长度必须是 32 字节, got %d", len(b))
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("密钥长度必须是 32 字节, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("密钥长度必须是 32 字节, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("密钥必须是 32 字节的 hex 或 base64")
}
