package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig 兑换服务配置
type ServiceConfig struct {
	BaseURL               string        // 服务基础地址
	CounterpartyID        string        // 对端服务身份标识
	CounterpartyPublicKey string        // 对端 Ed25519 公钥（hex 或 base64，可选：机器人身份可用自带会话公钥）
	Timeout               time.Duration // 单次请求超时
	RetryCount            int           // 重试次数（不含首次）
	RetryDelay            time.Duration // 固定重试间隔
	Referral              string        // 建单推荐人（可选）
	EnableRateLimit       bool          // 客户端限速开关
}

// PrincipalConfig 签名主体配置
type PrincipalConfig struct {
	Kind             string // user 或 bot
	ID               string // 主体 UUID
	Seed             string // Ed25519 种子（hex 或 base64）
	SessionPublicKey string // 机器人会话公钥（hex 或 base64，可选）
}

// TrackerConfig 订单轮询配置
type TrackerConfig struct {
	PollInterval time.Duration // 轮询间隔，默认 5s
}

// KeystoreConfig 本地密钥库配置
type KeystoreConfig struct {
	Path          string // Badger 数据目录（为空则不使用密钥库）
	EncryptionKey string // 32 字节静态加密密钥（hex 或 base64，可选）
}

// Config 应用配置
type Config struct {
	Service   ServiceConfig
	Principal PrincipalConfig
	Tracker   TrackerConfig
	Keystore  KeystoreConfig
	LogLevel  string
	LogFile   string
}

// ConfigFile YAML 配置文件结构
type ConfigFile struct {
	Service struct {
		BaseURL               string `yaml:"base_url"`
		CounterpartyID        string `yaml:"counterparty_id"`
		CounterpartyPublicKey string `yaml:"counterparty_public_key"`
		TimeoutSeconds        int    `yaml:"timeout_seconds"`
		RetryCount            *int   `yaml:"retry_count"`
		RetryDelayMillis      int    `yaml:"retry_delay_millis"`
		Referral              string `yaml:"referral"`
		EnableRateLimit       bool   `yaml:"enable_rate_limit"`
	} `yaml:"service"`
	Principal struct {
		Kind             string `yaml:"kind"`
		ID               string `yaml:"id"`
		Seed             string `yaml:"seed"`
		SessionPublicKey string `yaml:"session_public_key"`
	} `yaml:"principal"`
	Tracker struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	} `yaml:"tracker"`
	Keystore struct {
		Path          string `yaml:"path"`
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"keystore"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

var configPath = "config.yaml"

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configPath = path
}

// Load 加载配置（配置文件 + 环境变量覆盖）
// 配置文件不存在时只用环境变量
func Load() (*Config, error) {
	return LoadFromFile(configPath)
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(filePath string) (*Config, error) {
	var cf ConfigFile
	if raw, err := os.ReadFile(filePath); err == nil {
		if err := yaml.Unmarshal(raw, &cf); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			BaseURL:               pick(cf.Service.BaseURL, getEnv("SWAP_BASE_URL", "")),
			CounterpartyID:        pick(cf.Service.CounterpartyID, getEnv("SWAP_COUNTERPARTY_ID", "")),
			CounterpartyPublicKey: pick(cf.Service.CounterpartyPublicKey, getEnv("SWAP_COUNTERPARTY_PUBLIC_KEY", "")),
			Timeout:               time.Duration(pickInt(cf.Service.TimeoutSeconds, parseIntEnv("SWAP_TIMEOUT_SECONDS", 10))) * time.Second,
			RetryCount:            pickIntPtr(cf.Service.RetryCount, parseIntEnv("SWAP_RETRY_COUNT", 3)),
			RetryDelay:            time.Duration(pickInt(cf.Service.RetryDelayMillis, parseIntEnv("SWAP_RETRY_DELAY_MILLIS", 1000))) * time.Millisecond,
			Referral:              pick(cf.Service.Referral, getEnv("SWAP_REFERRAL", "")),
			EnableRateLimit:       cf.Service.EnableRateLimit || getEnv("SWAP_ENABLE_RATE_LIMIT", "") == "1",
		},
		Principal: PrincipalConfig{
			Kind:             pick(cf.Principal.Kind, getEnv("SWAP_PRINCIPAL_KIND", "bot")),
			ID:               pick(cf.Principal.ID, getEnv("SWAP_PRINCIPAL_ID", "")),
			Seed:             pick(cf.Principal.Seed, getEnv("SWAP_PRINCIPAL_SEED", "")),
			SessionPublicKey: pick(cf.Principal.SessionPublicKey, getEnv("SWAP_SESSION_PUBLIC_KEY", "")),
		},
		Tracker: TrackerConfig{
			PollInterval: time.Duration(pickInt(cf.Tracker.PollIntervalSeconds, parseIntEnv("SWAP_POLL_INTERVAL_SECONDS", 5))) * time.Second,
		},
		Keystore: KeystoreConfig{
			Path:          pick(cf.Keystore.Path, getEnv("SWAP_KEYSTORE_PATH", "")),
			EncryptionKey: pick(cf.Keystore.EncryptionKey, getEnv("SWAP_KEYSTORE_KEY", "")),
		},
		LogLevel: pick(cf.Log.Level, getEnv("SWAP_LOG_LEVEL", "info")),
		LogFile:  pick(cf.Log.File, getEnv("SWAP_LOG_FILE", "")),
	}
	return cfg, nil
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("缺少服务地址 (service.base_url / SWAP_BASE_URL)")
	}
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		return fmt.Errorf("服务地址必须以 http:// 或 https:// 开头: %s", c.Service.BaseURL)
	}
	if c.Service.CounterpartyID == "" {
		return fmt.Errorf("缺少对端身份标识 (service.counterparty_id / SWAP_COUNTERPARTY_ID)")
	}
	switch c.Principal.Kind {
	case "user", "bot":
	default:
		return fmt.Errorf("主体类型必须是 user 或 bot: %s", c.Principal.Kind)
	}
	// 主体材料可以来自密钥库，配置里缺失不算错误
	if c.Keystore.Path == "" && (c.Principal.ID == "" || c.Principal.Seed == "") {
		return fmt.Errorf("缺少主体材料：principal.id/seed 或 keystore.path 必须至少提供一组")
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("轮询间隔必须为正: %v", c.Tracker.PollInterval)
	}
	return nil
}

// pick 配置文件值优先，其次环境变量值
func pick(fileValue, envValue string) string {
	if fileValue != "" {
		return fileValue
	}
	return envValue
}

func pickInt(fileValue, envValue int) int {
	if fileValue != 0 {
		return fileValue
	}
	return envValue
}

// pickIntPtr 区分「没写」和「写了 0」（retry_count: 0 是合法配置）
func pickIntPtr(fileValue *int, envValue int) int {
	if fileValue != nil {
		return *fileValue
	}
	return envValue
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
