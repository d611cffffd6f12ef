package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/swapbot/goswap/internal/services"
	"github.com/swapbot/goswap/pkg/config"
	"github.com/swapbot/goswap/pkg/logger"
	"github.com/swapbot/goswap/pkg/shutdown"
)

// planFile 批量兑换计划
type planFile struct {
	Mode string `yaml:"mode"` // bulk 或 split
	Bulk struct {
		TargetAssetID string `yaml:"target_asset_id"`
		Percent       string `yaml:"percent"`
		Sources       []struct {
			AssetID string `yaml:"asset_id"`
			Amount  string `yaml:"amount"`
		} `yaml:"sources"`
	} `yaml:"bulk"`
	Split struct {
		SourceAssetID string `yaml:"source_asset_id"`
		Amount        string `yaml:"amount"`
		Legs          []struct {
			AssetID string `yaml:"asset_id"`
			Percent string `yaml:"percent"`
		} `yaml:"legs"`
	} `yaml:"split"`
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置文件路径")
		planPath   = flag.String("plan", "plan.yaml", "批量兑换计划文件")
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

	plan, err := loadPlan(*planPath)
	if err != nil {
		log.Fatalf("加载计划失败: %v", err)
	}

	c, err := services.BuildClient(cfg)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}
	coord := services.NewBatchSwapCoordinator(c, nil, cfg.Tracker.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var batch *services.Batch
	switch plan.Mode {
	case "bulk":
		sources := make([]services.BulkSource, 0, len(plan.Bulk.Sources))
		for _, s := range plan.Bulk.Sources {
			sources = append(sources, services.BulkSource{AssetID: s.AssetID, Amount: s.Amount})
		}
		percent, err := decimal.NewFromString(plan.Bulk.Percent)
		if err != nil {
			log.Fatalf("比例非法: %q", plan.Bulk.Percent)
		}
		batch, err = coord.ExecuteBulk(ctx, sources, percent, plan.Bulk.TargetAssetID)
		if err != nil {
			log.Fatalf("集中兑换失败: %v", err)
		}
	case "split":
		legs := make([]services.SplitLeg, 0, len(plan.Split.Legs))
		for _, l := range plan.Split.Legs {
			percent, err := decimal.NewFromString(l.Percent)
			if err != nil {
				log.Fatalf("资产 %s 的百分比非法: %q", l.AssetID, l.Percent)
			}
			legs = append(legs, services.SplitLeg{AssetID: l.AssetID, Percent: percent})
		}
		batch, err = coord.ExecuteSplit(ctx, plan.Split.SourceAssetID, plan.Split.Amount, legs)
		if err != nil {
			log.Fatalf("分散兑换失败: %v", err)
		}
	default:
		log.Fatalf("未知模式: %q（支持 bulk / split）", plan.Mode)
	}

	fmt.Printf("批次 %s: 建单成功 %d, 建单失败 %d\n",
		batch.ID, len(batch.Orders), len(batch.CreateFailures))
	for _, f := range batch.CreateFailures {
		fmt.Printf("  建单失败 %s→%s (%s): %v\n", f.InputAssetID, f.OutputAssetID, f.Amount, f.Err)
	}
	for _, o := range batch.Orders {
		fmt.Printf("  订单 %s: %s→%s %s\n", o.Result.OrderID, o.InputAssetID, o.OutputAssetID, o.Amount)
		fmt.Printf("    付款链接: %s\n", o.Result.PaymentURI)
	}

	// 退出信号触发批次拆除，已确认的订单不受影响
	sd := shutdown.NewManager()
	sd.OnShutdown(func(context.Context) { batch.Teardown() })
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sd.Shutdown(sctx)
	}()

	result := batch.Wait(ctx)
	fmt.Printf("批次 %s 结束: 成功 %d, 失败 %d, 建单失败 %d\n",
		batch.ID, len(result.Confirmed), len(result.Failed), len(result.CreateFailures))
	if result.PartiallyFailed {
		os.Exit(1)
	}
}

func loadPlan(path string) (*planFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan planFile
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("解析计划文件失败: %w", err)
	}
	return &plan, nil
}
