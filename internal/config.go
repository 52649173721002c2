package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支援 "30m"、"15s" 這類寫法的 yaml 時長
//
// yaml.v3 只把 time.Duration 當成整數（納秒）解析，
// 配置檔裡寫納秒沒有人看得懂，所以包一層自訂解析。
type Duration time.Duration

// UnmarshalYAML 實現 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("無效的時長 %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	// 整數視為納秒（與 time.Duration 的原生行為一致）
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("無效的時長: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std 轉回標準庫類型
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 整個應用的配置
//
// 讀取順序：內建預設值 → config.yaml 覆蓋 → 環境變數覆蓋（PORT）。
// 部署環境（PM2、容器）慣用環境變數指定端口，其餘配置走檔案。
type Config struct {
	Server struct {
		Port         int      `yaml:"port"`
		BasePath     string   `yaml:"base_path"`
		StaticDir    string   `yaml:"static_dir"` // 靜態客戶端目錄
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
		IdleTimeout  Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Room struct {
		ReapInterval  Duration `yaml:"reap_interval"`  // 閒置掃描間隔
		IdleThreshold Duration `yaml:"idle_threshold"` // 閒置回收閾值
	} `yaml:"room"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 內建預設值
//
// 端口與掛載路徑沿用原始部署（4000、/tictactoe）；
// 閒置回收 30 分鐘、掃描間隔 30 分鐘。
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 4000
	cfg.Server.BasePath = "/tictactoe"
	cfg.Server.StaticDir = "web"
	cfg.Server.ReadTimeout = Duration(15 * time.Second)
	cfg.Server.WriteTimeout = Duration(15 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Room.ReapInterval = Duration(DefaultReapInterval)
	cfg.Room.IdleThreshold = Duration(DefaultIdleThreshold)
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// LoadConfig 載入配置
//
// 檔案不存在時直接使用預設值（開發環境零配置可跑）；
// 檔案存在但解析失敗則回傳錯誤（壞配置比沒配置更危險）。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置檔失敗: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv 套用環境變數覆蓋
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil && val > 0 {
			c.Server.Port = val
		}
	}
}
