package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"

	"github.com/PhiFever/vision-bridge/pkg/utils"
)

// Config 是应用程序的全部配置
type Config struct {
	// UpdateInterval 检测循环的间隔（秒）
	UpdateInterval float64 `yaml:"update_interval" env:"UPDATE_INTERVAL"`
	// DisplayIndex 截图使用的显示器序号
	DisplayIndex int `yaml:"display_index" env:"DISPLAY_INDEX"`
	// LogLevel 日志级别（DEBUG/INFO/WARNING/ERROR）
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	OCR      OCRConfig      `yaml:"ocr" envPrefix:"OCR_"`
	Dilation DilationConfig `yaml:"dilation" envPrefix:"DILATION_"`
	Scales   ScalesConfig   `yaml:"scales" envPrefix:"SCALES_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
}

// OCRConfig OCR 引擎配置
type OCRConfig struct {
	// Driver 驱动名称（capi/client），为空时自动选择
	Driver string `yaml:"driver" env:"DRIVER"`
	// ModelPath 训练数据路径，支持 .traineddata、.gz 和 .tar.gz
	ModelPath string `yaml:"model_path" env:"MODEL_PATH"`
	// Language 语言代码
	Language string `yaml:"language" env:"LANGUAGE"`
	// PPI 源图像分辨率，<= 0 表示未知
	PPI int `yaml:"ppi" env:"PPI"`
	// PoolSize 引擎实例数量
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
}

// DilationConfig OCR 预处理时的膨胀核
type DilationConfig struct {
	Enabled      bool `yaml:"enabled" env:"ENABLED"`
	KernelWidth  int  `yaml:"kernel_width" env:"KERNEL_WIDTH"`
	KernelHeight int  `yaml:"kernel_height" env:"KERNEL_HEIGHT"`
}

// ScalesConfig 比例尺识别区域（屏幕坐标）
type ScalesConfig struct {
	X      int `yaml:"x" env:"X"`
	Y      int `yaml:"y" env:"Y"`
	Width  int `yaml:"width" env:"WIDTH"`
	Height int `yaml:"height" env:"HEIGHT"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr           string `yaml:"addr" env:"ADDR"`
	AllowedOrigins string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	MaxUploadBytes int    `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// EnvPrefix 是环境变量覆盖的前缀
const EnvPrefix = "VB_"

// Default 返回默认配置
func Default() *Config {
	return &Config{
		UpdateInterval: 1.0,
		DisplayIndex:   0,
		LogLevel:       "INFO",
		OCR: OCRConfig{
			ModelPath: utils.GetDataPath("eng.traineddata.tar.gz"),
			Language:  "eng",
			PPI:       0,
			PoolSize:  1,
		},
		Dilation: DilationConfig{
			Enabled:      true,
			KernelWidth:  3,
			KernelHeight: 3,
		},
		Scales: ScalesConfig{
			X:      1440,
			Y:      780,
			Width:  480,
			Height: 300,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: "*",
			MaxUploadBytes: 16 * 1024 * 1024,
		},
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	var errs []error
	if c.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update_interval must be positive, got %v", c.UpdateInterval))
	}
	if c.OCR.Language == "" {
		errs = append(errs, errors.New("ocr.language must not be empty"))
	}
	if c.OCR.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("ocr.pool_size must be at least 1, got %d", c.OCR.PoolSize))
	}
	if c.Dilation.Enabled && (c.Dilation.KernelWidth < 1 || c.Dilation.KernelHeight < 1) {
		errs = append(errs, fmt.Errorf("dilation kernel must be at least 1x1, got %dx%d",
			c.Dilation.KernelWidth, c.Dilation.KernelHeight))
	}
	if c.Scales.Width <= 0 || c.Scales.Height <= 0 {
		errs = append(errs, fmt.Errorf("scales region must have a positive size, got %dx%d",
			c.Scales.Width, c.Scales.Height))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	return errors.Join(errs...)
}

// ApplyEnv 用 VB_ 前缀的环境变量覆盖配置
func (c *Config) ApplyEnv() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
}

var (
	current   *Config
	currentMu sync.Mutex
)

// Get 返回全局配置，首次调用时从 VB_CONFIG（或 data/config.yaml）加载，
// 文件不存在时使用默认值，最后应用环境变量覆盖
func Get() (*Config, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil {
		return current, nil
	}

	cfg, err := LoadOrDefault(Path())
	if err != nil {
		return nil, err
	}
	current = cfg
	return current, nil
}

// Path 返回配置文件路径，VB_CONFIG 优先
func Path() string {
	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		return path
	}
	return utils.GetDataPath("config.yaml")
}

// LoadOrDefault 加载配置文件，不存在时使用默认值，然后应用环境变量并校验
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
