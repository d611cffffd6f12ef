package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/swapbot/goswap/internal/services"
	"github.com/swapbot/goswap/pkg/config"
	"github.com/swapbot/goswap/pkg/logger"
	"github.com/swapbot/goswap/route/client"
	"github.com/swapbot/goswap/route/types"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置文件路径")
		assets     = flag.String("assets", "", "逗号分隔的资产 ID 列表")
		rangeFlag  = flag.String("range", string(types.PriceRange1D), "价格走势区间 (1D/1W/1M/YTD/ALL)")
		interval   = flag.Duration("interval", 30*time.Second, "刷新间隔")
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

	assetIDs := splitAssets(*assets)
	if len(assetIDs) == 0 {
		log.Fatal("必须提供 -assets")
	}
	rng := types.PriceRange(*rangeFlag)
	if !rng.Valid() {
		log.Fatalf("非法区间: %q", *rangeFlag)
	}

	c, err := services.BuildClient(cfg)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("行情监控: %d 个资产, 每 %v 刷新\n", len(assetIDs), *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		refresh(ctx, c, assetIDs, rng)
		select {
		case <-ctx.Done():
			fmt.Println("退出")
			return
		case <-ticker.C:
		}
	}
}

func refresh(ctx context.Context, c *client.Client, assetIDs []string, rng types.PriceRange) {
	for _, id := range assetIDs {
		market, err := c.GetMarket(ctx, id)
		if err != nil {
			logger.Warnf("资产 %s 行情获取失败: %v", id, err)
			continue
		}
		line := fmt.Sprintf("%-8s %s  24h %s%%", market.Symbol, market.CurrentPrice, market.PriceChange24h)

		history, err := c.GetPriceHistory(ctx, id, rng)
		if err != nil {
			logger.Warnf("资产 %s 走势获取失败: %v", id, err)
		} else if n := len(history.Data); n > 0 {
			line += fmt.Sprintf("  [%s 区间 %d 个点, 起点 %s]", rng, n, history.Data[0].Price)
		}
		fmt.Println(line)
	}
}

func splitAssets(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
