// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/logger"
	"github.com/paiban/planner/pkg/scheduler/solver"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Solver   SolverConfig   `yaml:"solver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SolveTimeout time.Duration `yaml:"solve_timeout"` // 0 表示不限制
	RateLimit    float64       `yaml:"rate_limit"`    // 每秒请求数，0 表示不限流
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"` // postgres/sqlite
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SolverConfig 求解配置
type SolverConfig struct {
	Engine    string `yaml:"engine"`
	Solutions []int  `yaml:"solutions"` // 需要输出的中间解序号
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// 支持的数据库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "planner",
			Env:       "development",
			LogLevel:  "info",
			LogFormat: "console",
			LogOutput: "stderr",
		},
		Server: ServerConfig{
			Port:         7012,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit:    100,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Driver:          DriverSQLite,
			DSN:             "file:planner.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Solver: SolverConfig{
			Engine: solver.DefaultEngine,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "planner",
		},
	}
}

// Load 加载配置
// 顺序：默认值、.env、PLANNER_CONFIG 指向的 YAML 文件、环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.DataLoad(".env", err)
	}

	cfg := Default()
	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile 从 YAML 文件覆盖配置
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.DataLoad(path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.DataLoad(path, err)
	}
	return nil
}

// applyEnv 用环境变量覆盖配置，未设置的保持原值
func (c *Config) applyEnv() error {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.LogLevel = getEnv("APP_LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("APP_LOG_FORMAT", c.App.LogFormat)
	c.App.LogOutput = getEnv("APP_LOG_OUTPUT", c.App.LogOutput)

	c.Server.Port = getEnvInt("APP_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.SolveTimeout = getEnvDuration("SERVER_SOLVE_TIMEOUT", c.Server.SolveTimeout)
	c.Server.RateLimit = getEnvFloat("SERVER_RATE_LIMIT", c.Server.RateLimit)

	c.Database.Enabled = getEnvBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Solver.Engine = getEnv("SOLVER_ENGINE", c.Solver.Engine)
	if value := os.Getenv("SOLVER_SOLUTIONS"); value != "" {
		solutions, err := ParseSolutions(value)
		if err != nil {
			return err
		}
		c.Solver.Solutions = solutions
	}

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	ve := &apperrors.ValidationErrors{}

	if _, err := solver.New(c.Solver.Engine); err != nil {
		ve.Addf("solver.engine", "未知的求解引擎 %q，可选: %s", c.Solver.Engine, strings.Join(solver.Names(), ", "))
	}
	for _, i := range c.Solver.Solutions {
		if i < 0 {
			ve.Addf("solver.solutions", "中间解序号不能为负: %d", i)
		}
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case DriverPostgres, DriverSQLite:
		default:
			ve.Addf("database.driver", "不支持的数据库驱动 %q", c.Database.Driver)
		}
		if c.Database.DSN == "" {
			ve.Add("database.dsn", "启用数据库时必须提供连接字符串")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		ve.Addf("server.port", "端口超出范围: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		ve.Addf("server.rate_limit", "限流速率不能为负: %g", c.Server.RateLimit)
	}

	if ve.HasErrors() {
		return apperrors.Wrap(ve, apperrors.CodeConfiguration, "配置无效").WithDetails(ve.Error())
	}
	return nil
}

// Logger 返回日志配置
func (c *Config) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.App.LogLevel
	cfg.Format = c.App.LogFormat
	cfg.Output = c.App.LogOutput
	return cfg
}

// Addr 返回 HTTP 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// ParseSolutions 解析逗号分隔的中间解序号，例如 "0,3,5"
func ParseSolutions(value string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, apperrors.InvalidInput("solutions", fmt.Sprintf("无效的中间解序号: %q", part))
		}
		out = append(out, i)
	}
	return out, nil
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
