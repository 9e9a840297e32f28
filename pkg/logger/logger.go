// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

// 上下文键
const (
	RequestIDKey ctxKey = "request_id"
	PlanIDKey    ctxKey = "plan_id"
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file/discard
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
// 默认输出到 stderr，stdout 留给排班报告
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		logger = zerolog.New(openOutput(cfg)).With().Timestamp().Logger()
	})
}

// openOutput 根据配置选择输出
func openOutput(cfg Config) io.Writer {
	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "discard":
		return io.Discard
	case "file":
		output = os.Stderr
		if cfg.FilePath != "" {
			f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				output = f
			}
		}
	default:
		output = os.Stderr
	}

	if cfg.Format == "console" {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: timeFormat,
		}
	}
	return output
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	if planID, ok := ctx.Value(PlanIDKey).(string); ok {
		l = l.With().Str("plan_id", planID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// PlannerLogger 排班求解专用日志器
type PlannerLogger struct {
	base *zerolog.Logger
}

// NewPlannerLogger 创建排班求解日志器
func NewPlannerLogger() *PlannerLogger {
	l := Get().With().Str("component", "planner").Logger()
	return &PlannerLogger{base: &l}
}

// StartSolve 记录求解开始
func (l *PlannerLogger) StartSolve(planID, engine string, users, days, shifts int) {
	l.base.Info().
		Str("plan_id", planID).
		Str("engine", engine).
		Int("users", users).
		Int("days", days).
		Int("shifts", shifts).
		Msg("开始求解排班")
}

// ModelBuilt 记录模型规模
func (l *PlannerLogger) ModelBuilt(planID string, vars, constraints, maxScore int) {
	l.base.Debug().
		Str("plan_id", planID).
		Int("vars", vars).
		Int("constraints", constraints).
		Int("max_score", maxScore).
		Msg("模型构建完成")
}

// Candidate 记录中间解
func (l *PlannerLogger) Candidate(planID string, index, objective int) {
	l.base.Debug().
		Str("plan_id", planID).
		Int("index", index).
		Int("objective", objective).
		Msg("发现候选解")
}

// ConstraintViolation 记录约束违反
func (l *PlannerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// SolveComplete 记录求解完成
func (l *PlannerLogger) SolveComplete(planID, status string, duration time.Duration, objective int) {
	l.base.Info().
		Str("plan_id", planID).
		Str("status", status).
		Dur("duration", duration).
		Int("objective", objective).
		Msg("排班求解完成")
}
