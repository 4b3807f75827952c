package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/goid"
)

type Logger = zap.Logger

var (
	baseLogger    *zap.Logger
	defaultFields = struct {
		Component string
	}{}
	loggerInitOnce    sync.Once
	loggerInitialized bool
	mu                sync.RWMutex
)

// Init 初始化全局日志（仅生效一次）
// LOGGING 关闭时使用 Nop 日志器，调用方无需区分
func Init(cfg config.ZapLogConfig) error {
	var err error
	loggerInitOnce.Do(func() {
		var l *zap.Logger
		l, err = newLogger(cfg)
		if err != nil {
			return
		}
		baseLogger = l
		loggerInitialized = true
	})
	return err
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "dbg", "debug":
		return zapcore.DebugLevel
	case "war", "warn":
		return zapcore.WarnLevel
	case "err", "error":
		return zapcore.ErrorLevel
	case "pan", "panic":
		return zapcore.PanicLevel
	case "fat", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newLogger(cfg config.ZapLogConfig) (*zap.Logger, error) {
	if !cfg.Enable {
		return zap.NewNop(), nil
	}
	level := parseLevel(cfg.Level)

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, err
	}

	opts := []rotatelogs.Option{rotatelogs.WithRotationTime(24 * time.Hour)}
	// MaxAge 与 RotationCount 不能同时设置
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	} else {
		opts = append(opts, rotatelogs.WithRotationCount(uint(cfg.MaxBackup)))
	}
	writer, err := rotatelogs.New(filepath.Join(cfg.Path, "perf-monitor-%Y%m%d.log"), opts...)
	if err != nil {
		return nil, err
	}

	// 控制台彩色时间
	customTimeEncoderConsole := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}

	// JSON 日志纯文本时间
	customTimeEncoderJSON := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
	}

	coloredLevelEncoder := func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			levelStr = "\033[35m" + level.CapitalString() + "\033[0m"
		default:
			levelStr = "UNK  "
		}
		enc.AppendString(levelStr)
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = customTimeEncoderJSON
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(jsonCfg)

	stdoutEncoder := jsonEncoder
	if cfg.Format == "console" {
		consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
		consoleEncoderCfg.ConsoleSeparator = " "
		consoleEncoderCfg.EncodeLevel = coloredLevelEncoder
		consoleEncoderCfg.EncodeTime = customTimeEncoderConsole
		// Caller 两级路径
		consoleEncoderCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
			rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
			enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
		}
		stdoutEncoder = zapcore.NewConsoleEncoder(consoleEncoderCfg)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(writer), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func SetDefaultComponent(component string) {
	mu.Lock()
	defer mu.Unlock()
	defaultFields.Component = component
}

func GetDefaultComponent() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultFields.Component
}

func getDefaultFields() []zapcore.Field {
	return []zapcore.Field{
		zap.String("component", GetDefaultComponent()),
		zap.String("goid", strconv.FormatUint(goid.GetGID(), 10)),
	}
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	if !loggerInitialized {
		panic("logger not initialized: call logger.Init() first")
	}

	l := baseLogger.WithOptions(zap.AddCallerSkip(2)).With(getDefaultFields()...)
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { log(zap.FatalLevel, msg, fields...) }

// Named 为流水线组件派生带 component 字段的日志器
func Named(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}

func Sync() error {
	if !loggerInitialized {
		return nil
	}
	return baseLogger.Sync()
}

func GetLogger() *zap.Logger {
	if !loggerInitialized {
		panic("logger not initialized: call logger.Init() first")
	}
	return baseLogger
}
