/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger wires zap, lumberjack rotation and the otelzap bridge behind a
// small package-level API.
// logger 包将 zap、lumberjack 日志轮转和 otelzap 桥接封装为简单的包级 API。
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jbossctl/jbossctl/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	current = otelzap.New(zap.NewNop())
	closer  io.Closer
)

// Init builds the global logger from cfg. It may be called again to reconfigure.
// Init 根据 cfg 构建全局日志器，可重复调用以重新配置。
func Init(cfg config.LogConfig) error {
	l, c, err := New(cfg)
	if err != nil {
		return err
	}
	Set(l)

	mu.Lock()
	old := closer
	closer = c
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// New builds a logger without installing it. The returned closer is non-nil when
// logs go to a rotated file.
// New 构建日志器但不安装，当日志写入轮转文件时返回的 closer 非空。
func New(cfg config.LogConfig) (*otelzap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	var (
		sink zapcore.WriteSyncer
		c    io.Closer
	)
	switch cfg.Output {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	case "file":
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		sink = zapcore.AddSync(rotator)
		c = rotator
	default:
		return nil, nil, fmt.Errorf("logger: unknown output %q", cfg.Output)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return otelzap.New(zap.New(core, zap.AddCaller())), c, nil
}

// Set installs l as the global logger
// Set 将 l 安装为全局日志器
func Set(l *otelzap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// L returns the global logger
// L 返回全局日志器
func L() *otelzap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Sync flushes buffered entries and closes the log file
// Sync 刷新缓冲的日志并关闭日志文件
func Sync() {
	_ = L().Sync()
	mu.Lock()
	c := closer
	closer = nil
	mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

// DebugF logs a formatted message at debug level, carrying the trace of ctx
// DebugF 以调试级别记录格式化日志，并携带 ctx 中的链路信息
func DebugF(ctx context.Context, format string, args ...any) {
	L().Ctx(ctx).Debug(fmt.Sprintf(format, args...))
}

// InfoF logs a formatted message at info level, carrying the trace of ctx
// InfoF 以信息级别记录格式化日志，并携带 ctx 中的链路信息
func InfoF(ctx context.Context, format string, args ...any) {
	L().Ctx(ctx).Info(fmt.Sprintf(format, args...))
}

// WarnF logs a formatted message at warn level, carrying the trace of ctx
// WarnF 以警告级别记录格式化日志，并携带 ctx 中的链路信息
func WarnF(ctx context.Context, format string, args ...any) {
	L().Ctx(ctx).Warn(fmt.Sprintf(format, args...))
}

// ErrorF logs a formatted message at error level, carrying the trace of ctx
// ErrorF 以错误级别记录格式化日志，并携带 ctx 中的链路信息
func ErrorF(ctx context.Context, format string, args ...any) {
	L().Ctx(ctx).Error(fmt.Sprintf(format, args...))
}
