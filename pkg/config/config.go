package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/betbot/equityorder/internal/domain"
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid config")

// TriggerConfig 单个触发器配置
type TriggerConfig struct {
	Name       string
	EquityCode string
	Params     domain.OrderParameters
}

// OrderServiceConfig 下单后端配置
type OrderServiceConfig struct {
	Endpoint string        // HTTP 下单接口地址（dry_run=false 时必填）
	APIKey   string        // 可选
	Timeout  time.Duration // 单次请求超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config 应用配置
type Config struct {
	Log                LogConfig
	DryRun             bool               // 纸交易模式：只在内存中记录订单
	OrderService       OrderServiceConfig // dry_run=false 时使用
	MetricsAddr        string             // metrics 监听地址，为空不启动
	JournalPath        string             // 下单事件 SQLite 路径，为空不记录
	FeedWorkers        int                // 报价回放并发数
	SharedLockRegistry bool               // 所有触发器共享进程级锁表（同代码跨触发器串行）
	RetainLockEntries  bool               // 锁表条目常驻，不在每次报价后删除
	Triggers           []TriggerConfig
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Log struct {
		Level      string `yaml:"level" json:"level"`
		File       string `yaml:"file" json:"file"`
		MaxSize    int    `yaml:"max_size" json:"max_size"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups"`
		MaxAge     int    `yaml:"max_age" json:"max_age"`
		Compress   bool   `yaml:"compress" json:"compress"`
	} `yaml:"log" json:"log"`
	DryRun       bool `yaml:"dry_run" json:"dry_run"`
	OrderService struct {
		Endpoint       string `yaml:"endpoint" json:"endpoint"`
		APIKey         string `yaml:"api_key" json:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"order_service" json:"order_service"`
	MetricsAddr        string `yaml:"metrics_addr" json:"metrics_addr"`
	JournalPath        string `yaml:"journal_path" json:"journal_path"`
	FeedWorkers        int    `yaml:"feed_workers" json:"feed_workers"`
	SharedLockRegistry bool   `yaml:"shared_lock_registry" json:"shared_lock_registry"`
	RetainLockEntries  bool   `yaml:"retain_lock_entries" json:"retain_lock_entries"`
	Triggers           []struct {
		Name           string `yaml:"name" json:"name"`
		EquityCode     string `yaml:"equity_code" json:"equity_code"`
		PriceThreshold string `yaml:"price_threshold" json:"price_threshold"` // 十进制字符串，例如 "5.00"
		Quantity       int    `yaml:"quantity" json:"quantity"`
	} `yaml:"triggers" json:"triggers"`
}

// LoadFromFile 加载配置（优先级：环境变量 > 配置文件 > 默认值）
// filePath 为空时只使用环境变量和默认值。
func LoadFromFile(filePath string) (*Config, error) {
	var cf *ConfigFile
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	if cf == nil {
		cf = &ConfigFile{}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:      getEnv("EQUITYORDER_LOG_LEVEL", orDefault(cf.Log.Level, "info")),
			File:       getEnv("EQUITYORDER_LOG_FILE", cf.Log.File),
			MaxSize:    intOrDefault(cf.Log.MaxSize, 100),
			MaxBackups: intOrDefault(cf.Log.MaxBackups, 3),
			MaxAge:     intOrDefault(cf.Log.MaxAge, 7),
			Compress:   cf.Log.Compress,
		},
		DryRun: parseBoolEnv("EQUITYORDER_DRY_RUN", cf.DryRun),
		OrderService: OrderServiceConfig{
			Endpoint: getEnv("EQUITYORDER_ORDER_ENDPOINT", cf.OrderService.Endpoint),
			APIKey:   getEnv("EQUITYORDER_API_KEY", cf.OrderService.APIKey),
			Timeout:  time.Duration(parseIntEnv("EQUITYORDER_ORDER_TIMEOUT_SECONDS", intOrDefault(cf.OrderService.TimeoutSeconds, 10))) * time.Second,
		},
		MetricsAddr:        getEnv("EQUITYORDER_METRICS_ADDR", cf.MetricsAddr),
		JournalPath:        getEnv("EQUITYORDER_JOURNAL_PATH", cf.JournalPath),
		FeedWorkers:        parseIntEnv("EQUITYORDER_FEED_WORKERS", intOrDefault(cf.FeedWorkers, 4)),
		SharedLockRegistry: parseBoolEnv("EQUITYORDER_SHARED_LOCK_REGISTRY", cf.SharedLockRegistry),
		RetainLockEntries:  parseBoolEnv("EQUITYORDER_RETAIN_LOCK_ENTRIES", cf.RetainLockEntries),
	}

	for i, t := range cf.Triggers {
		params, err := domain.NewOrderParameters(t.PriceThreshold, t.Quantity)
		if err != nil {
			return nil, fmt.Errorf("triggers[%d] %s: %w: %v", i, t.Name, ErrInvalid, err)
		}
		name := strings.TrimSpace(t.Name)
		if name == "" {
			name = fmt.Sprintf("%s-%d", strings.ToLower(strings.TrimSpace(t.EquityCode)), i)
		}
		cfg.Triggers = append(cfg.Triggers, TriggerConfig{
			Name:       name,
			EquityCode: strings.ToUpper(strings.TrimSpace(t.EquityCode)),
			Params:     params,
		})
	}

	// 单触发器快捷方式：EQUITYORDER_EQUITY_CODE + EQUITYORDER_PRICE_THRESHOLD + EQUITYORDER_QUANTITY
	if code := strings.TrimSpace(os.Getenv("EQUITYORDER_EQUITY_CODE")); code != "" {
		params, err := domain.NewOrderParameters(os.Getenv("EQUITYORDER_PRICE_THRESHOLD"), parseIntEnv("EQUITYORDER_QUANTITY", 0))
		if err != nil {
			return nil, fmt.Errorf("环境变量触发器: %w: %v", ErrInvalid, err)
		}
		cfg.Triggers = append(cfg.Triggers, TriggerConfig{
			Name:       getEnv("EQUITYORDER_TRIGGER_NAME", "env"),
			EquityCode: strings.ToUpper(code),
			Params:     params,
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Triggers) == 0 {
		return fmt.Errorf("%w: 至少需要配置一个触发器", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Triggers))
	for _, t := range c.Triggers {
		if t.EquityCode == "" {
			return fmt.Errorf("%w: 触发器 %s 缺少 equity_code", ErrInvalid, t.Name)
		}
		if err := t.Params.Validate(); err != nil {
			return fmt.Errorf("%w: 触发器 %s: %v", ErrInvalid, t.Name, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: 触发器名称重复: %s", ErrInvalid, t.Name)
		}
		seen[t.Name] = true
	}
	if !c.DryRun && strings.TrimSpace(c.OrderService.Endpoint) == "" {
		return fmt.Errorf("%w: dry_run=false 时必须配置 order_service.endpoint", ErrInvalid)
	}
	if c.FeedWorkers <= 0 {
		return fmt.Errorf("%w: feed_workers 必须大于 0", ErrInvalid)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return v
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return v
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
