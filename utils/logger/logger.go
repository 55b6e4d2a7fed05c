// Package logger 全局结构化日志
package logger

import (
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const projectName = "photogram"

// L 全局 logger，init 时以 info 级别 JSON 输出初始化，Init 可重新配置
var L *zap.Logger

func init() {
	L = build(zap.InfoLevel, "json")
}

// Init 按配置重建全局 logger
func Init(level, format string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zap.InfoLevel
	}
	L = build(lvl, format)
}

func build(level zapcore.Level, format string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		index := strings.Index(caller.File, projectName)
		if index != -1 {
			enc.AppendString(caller.File[index:] + ":" + strconv.Itoa(caller.Line))
		} else {
			enc.AppendString(caller.TrimmedPath())
		}
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// Named 返回带组件名的子 logger
func Named(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}

// StdLog 返回桥接到 zap 的标准库 logger，供 GORM 等只接受 *log.Logger 的库使用
func StdLog(component string) *log.Logger {
	return zap.NewStdLog(Named(component))
}

// Sync 刷新缓冲
func Sync() {
	_ = L.Sync()
}
