package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/swapbot/goswap/internal/services"
	"github.com/swapbot/goswap/pkg/config"
	"github.com/swapbot/goswap/pkg/logger"
	"github.com/swapbot/goswap/route/types"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置文件路径")
		inputMint  = flag.String("in", "", "输入资产 ID")
		outputMint = flag.String("out", "", "输出资产 ID")
		amount     = flag.String("amount", "", "输入数量（十进制字符串）")
		quoteOnly  = flag.Bool("quote-only", false, "只询价不建单")
	)
	flag.Parse()

	// .env 仅作补充，已有的环境变量不覆盖
	_ = godotenv.Load()

	config.SetConfigPath(*configPath)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}
	if *inputMint == "" || *outputMint == "" || *amount == "" {
		log.Fatal("必须提供 -in -out -amount")
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	c, err := services.BuildClient(cfg)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *quoteOnly {
		quote, err := c.GetQuote(ctx, *inputMint, *outputMint, *amount)
		if err != nil {
			exitOnSwapError(err)
		}
		fmt.Printf("报价: %s %s → %s %s\n", quote.InAmount, quote.InputMint, quote.OutAmount, quote.OutputMint)
		return
	}

	result, err := c.ExecuteSwap(ctx, *inputMint, *outputMint, *amount)
	if err != nil {
		exitOnSwapError(err)
	}

	fmt.Printf("订单已创建: %s\n", result.OrderID)
	fmt.Printf("预期成交: %s %s → %s %s\n",
		result.Quote.InAmount, result.Quote.InputMint,
		result.Quote.OutAmount, result.Quote.OutputMint)
	fmt.Printf("付款链接: %s\n", result.PaymentURI)

	// 跟踪到终态，Ctrl-C 退出则停止轮询
	tracker := services.NewOrderTracker(c, nil, result.OrderID, result.TraceID, cfg.Tracker.PollInterval)
	tracker.Start(ctx)
	<-tracker.Done()

	state := tracker.State()
	fmt.Printf("订单 %s 最终状态: %s\n", result.OrderID, state)
	if state != types.OrderStateConfirmed {
		os.Exit(1)
	}
}

// exitOnSwapError 把常见业务错误翻译成人话再退出
func exitOnSwapError(err error) {
	if rng, ok := types.IsAmountOutOfRange(err); ok && rng != nil {
		log.Fatalf("数量超出可兑换区间 [%s, %s]: %v", rng.Min, rng.Max, err)
	}
	if types.IsNoAvailableRoute(err) {
		log.Fatalf("没有可用兑换路径: %v", err)
	}
	log.Fatalf("兑换失败: %v", err)
}
