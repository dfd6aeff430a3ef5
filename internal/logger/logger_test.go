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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/config"
)

// TestNewWritesToFile tests that a configured file receives JSON lines
// TestNewWritesToFile 测试配置的文件会收到 JSON 日志行
func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kproc.log")
	l, err := New(config.LogConfig{Level: "info", File: path, MaxSize: 1})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("booted", zap.Int("pid", 1))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one JSON line: %s", data)
	assert.Equal(t, "booted", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 1, entry["pid"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewAcceptsUpperCaseLevel(t *testing.T) {
	l, err := New(config.LogConfig{Level: "WARN"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}
