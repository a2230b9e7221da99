// Package log 提供基于 zerolog 的全局日志，输出到标准错误（console 或 json）并可选写入
// lumberjack 轮转文件. 每条日志携带 service 与 version 字段，模块通过 Component 取得子 logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/studiovault/pkg/configs"
)

// ServiceName 日志中 service 字段的值.
const ServiceName = "studiovault"

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()

	var writers []io.Writer
	if cfg.Log.EnableFile {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		})
	}

	logger = New(cfg.Log, cfg.Server.Debug, os.Stderr, writers...)
	zerolog.SetGlobalLevel(logger.GetLevel())

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Logger = logger
}

// New 按配置构造 logger：stderr 按 Format 输出，extra 原样接收 JSON 行（如轮转文件）.
// debug 时附带调用位置与错误堆栈.
func New(cfg configs.LogConfig, debug bool, stderr io.Writer, extra ...io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			fmt.Fprintf(stderr, "invalid log level %q, defaulting to info\n", cfg.Level)
		}

		lvl = zerolog.InfoLevel
	}

	out := stderr
	if cfg.Format != configs.LogFormatJSON {
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = stderr
			w.TimeFormat = time.Kitchen
		})
	}

	if len(extra) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, extra...)...)
	}

	ctx := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", ServiceName).
		Str("version", configs.AppVersion)
	if debug {
		ctx = ctx.Caller().Stack()
	}

	return ctx.Logger()
}

// Logger 返回全局 logger.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger，如 ledger、events、scheduler.
func Component(name string) *zerolog.Logger {
	sub := Logger().With().Str("component", name).Logger()

	return &sub
}

// GinWriter 把 Gin 文本行转发为 zerolog 事件.
// 行首的 [WARNING]、[ERROR] 与 [GIN-debug] 标记决定级别，未标记的行使用默认级别.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

var ginPrefixes = []struct {
	tag   string
	level zerolog.Level
}{
	{"[GIN-debug] [WARNING]", zerolog.WarnLevel},
	{"[GIN-debug] [ERROR]", zerolog.ErrorLevel},
	{"[GIN-debug]", zerolog.DebugLevel},
	{"[WARNING]", zerolog.WarnLevel},
	{"[ERROR]", zerolog.ErrorLevel},
	{"[GIN]", zerolog.InfoLevel},
}

func (w *GinWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lvl := w.level

		for _, pf := range ginPrefixes {
			if strings.HasPrefix(line, pf.tag) {
				lvl = pf.level
				line = strings.TrimSpace(strings.TrimPrefix(line, pf.tag))

				break
			}
		}

		w.logger.WithLevel(lvl).Str("source", "gin").Msg(line)
	}

	return len(p), nil
}
