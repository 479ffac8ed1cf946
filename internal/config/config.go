package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix 环境变量前缀，例如 HWCHECK_SERVER_PORT
const EnvPrefix = "HWCHECK"

// FileName 配置文件名
const FileName = "config.toml"

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server" envconfig:"SERVER"`
	Data   DataConfig   `toml:"data" envconfig:"DATA"`
	Check  CheckConfig  `toml:"check" envconfig:"CHECK"`
	Log    LogConfig    `toml:"log" envconfig:"LOG"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" split_words:"true"`
	DevMode bool `toml:"dev_mode" split_words:"true"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" split_words:"true"`
}

// CheckConfig 检查相关配置
type CheckConfig struct {
	DefaultExtensions string `toml:"default_extensions" split_words:"true"`
	MaxUploadMB       int64  `toml:"max_upload_mb" split_words:"true"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level" split_words:"true"`
	Format string `toml:"format" split_words:"true"` // text | json
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Check: CheckConfig{
			DefaultExtensions: ".py, .zip, .docx",
			MaxUploadMB:       200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// MaxUploadBytes 单次上传大小上限
func (c *AppConfig) MaxUploadBytes() int64 {
	if c.Check.MaxUploadMB <= 0 {
		return 0
	}
	return c.Check.MaxUploadMB << 20
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func baseDir() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		return "."
	}
	return exeDir
}

// DefaultPath 可执行文件同目录下的 config.toml
func DefaultPath() string {
	return filepath.Join(baseDir(), FileName)
}

// LoadConfigWithInfo 从可执行文件同目录下的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom 按 默认值 -> 配置文件 -> 环境变量 的顺序加载配置
// 配置文件不存在时只使用默认值和环境变量
func LoadFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, info, err
	}

	// 环境变量覆盖（未设置的字段保持原值）
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, info, fmt.Errorf("failed to load config from env: %w", err)
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_SERVER_PORT"); ok {
		info.PortSpecified = true
	}

	return config, info, nil
}

// SaveTo 保存配置到指定路径
func SaveTo(configPath string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// DataPaths 数据目录布局
type DataPaths struct {
	Root    string
	Uploads string // 上传压缩包的解压目录
	Exports string // CLI 导出目录
}

// EnsureDataDir 确保数据目录及子目录存在
// 相对路径相对于可执行文件所在目录
func EnsureDataDir(config *AppConfig) (DataPaths, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(baseDir(), dataDir)
	}

	paths := DataPaths{
		Root:    dataDir,
		Uploads: filepath.Join(dataDir, "uploads"),
		Exports: filepath.Join(dataDir, "exports"),
	}
	for _, dir := range []string{paths.Root, paths.Uploads, paths.Exports} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return DataPaths{}, err
		}
	}
	return paths, nil
}
