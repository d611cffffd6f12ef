package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/swapbot/goswap/internal/services"
	"github.com/swapbot/goswap/pkg/config"
	"github.com/swapbot/goswap/pkg/logger"
)

// 列出当前可兑换的资产
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置文件路径")
		filter     = flag.String("filter", "", "按符号过滤（不区分大小写的子串）")
	)
	flag.Parse()

	_ = godotenv.Load()

	config.SetConfigPath(*configPath)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	c, err := services.BuildClient(cfg)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}

	tokens, err := c.ListTokens(context.Background())
	if err != nil {
		log.Fatalf("获取资产列表失败: %v", err)
	}

	needle := strings.ToLower(*filter)
	shown := 0
	for _, tok := range tokens {
		if needle != "" && !strings.Contains(strings.ToLower(tok.Symbol), needle) {
			continue
		}
		fmt.Printf("%-10s %-36s %s (%s)\n", tok.Symbol, tok.AssetID, tok.Name, tok.Chain.Name)
		shown++
	}
	fmt.Printf("共 %d 个资产\n", shown)
}
