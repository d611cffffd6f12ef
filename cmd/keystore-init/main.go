package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/swapbot/goswap/pkg/secretstore"
	"github.com/swapbot/goswap/route/types"
)

// 把环境变量里的主体材料导入加密密钥库，之后运行时不再需要明文种子
func main() {
	// 先读 .env 再算 flag 默认值
	_ = godotenv.Load()
	var (
		dbPath    = flag.String("keystore", getenv("SWAP_KEYSTORE_PATH", "data/keystore"), "密钥库路径")
		secretKey = flag.String("secret-key", getenv("SWAP_KEYSTORE_KEY", ""), "密钥库加密密钥（32 字节 hex/base64）")
		kind      = flag.String("kind", getenv("SWAP_PRINCIPAL_KIND", "bot"), "主体类型 (user/bot)")
		id        = flag.String("id", getenv("SWAP_PRINCIPAL_ID", ""), "主体 UUID")
		seed      = flag.String("seed", getenv("SWAP_PRINCIPAL_SEED", ""), "Ed25519 种子（hex/base64）")
		session   = flag.String("session-public-key", getenv("SWAP_SESSION_PUBLIC_KEY", ""), "机器人会话公钥（可选）")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("必须提供加密密钥: 设置 SWAP_KEYSTORE_KEY 或传 -secret-key"))
	}

	seedBytes, err := secretstore.ParseKey(*seed)
	if err != nil {
		fatal(fmt.Errorf("解析种子失败: %w", err))
	}
	sessionBytes, err := secretstore.ParseKey(*session)
	if err != nil {
		fatal(fmt.Errorf("解析会话公钥失败: %w", err))
	}

	principalKind := types.PrincipalBot
	if *kind == "user" {
		principalKind = types.PrincipalUser
	}
	principal := &types.Principal{
		Kind:             principalKind,
		ID:               *id,
		Seed:             seedBytes,
		SessionPublicKey: sessionBytes,
	}
	if !principal.Valid() {
		fatal(fmt.Errorf("主体材料不完整: 需要 -id 和 32 字节种子"))
	}

	store, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	if err := store.SavePrincipal(principal); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "已写入主体 %s 到密钥库 %s\n", principal.ID, *dbPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "错误:", err)
	os.Exit(1)
}
