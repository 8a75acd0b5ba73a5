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

package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jbossctl/jbossctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// TestInitFileOutput tests rotation-backed file logging
// TestInitFileOutput 测试基于轮转文件的日志输出
func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jbossctl.log")
	require.NoError(t, Init(config.LogConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "file",
		FilePath:   path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}))

	InfoF(context.Background(), "readiness check finished for %s", "default")
	L().Info("structured", zap.String("target", "edge"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "readiness check finished for default")
	assert.Contains(t, string(data), `"target":"edge"`)
	assert.Contains(t, string(data), `"level":"info"`)

	Set(otelzap.New(zap.NewNop()))
}

// TestNewRejectsBadSettings tests configuration errors
// TestNewRejectsBadSettings 测试配置错误
func TestNewRejectsBadSettings(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)

	_, _, err = New(config.LogConfig{Level: "info", Output: "syslog"})
	assert.Error(t, err)

	l, c, err := New(config.LogConfig{Level: "warn", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.Nil(t, c)
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	assert.NotPanics(t, func() {
		DebugF(context.Background(), "debug %d", 1)
		WarnF(context.Background(), "warn %d", 2)
		ErrorF(context.Background(), "error %d", 3)
	})
}
