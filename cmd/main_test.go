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

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jbossctl/jbossctl/internal/config"
	"github.com/jbossctl/jbossctl/internal/events"
	"github.com/jbossctl/jbossctl/internal/jmx/jmxtest"
	"github.com/jbossctl/jbossctl/internal/lifecycle"
	"github.com/jbossctl/jbossctl/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config with one remote server at address:port
func writeConfig(t *testing.T, address string, port int) string {
	t.Helper()
	content := fmt.Sprintf(`
log:
  level: error
probe:
  interval: 10ms
  pre_check_timeout: 1
metrics:
  textfile: %s
servers:
  - name: node1
    kind: remote
    address: %s
    management_port: %d
    timeout_seconds: 2
    start_command: /bin/false
    stop_command: /bin/false
`, filepath.Join(t.TempDir(), "jbossctl.prom"), address, port)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// TestRootCommand tests the root command
// TestRootCommand 测试根命令
func TestRootCommand(t *testing.T) {
	assert.Equal(t, "jbossctl", rootCmd.Use)
	for _, name := range []string{"start", "start-and-wait", "shutdown", "check-deploy", "servers", "config", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

// TestVersionCommand tests the version command
// TestVersionCommand 测试版本命令
func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    "+Version)
}

// TestStartAlreadyRunning tests that the CLI succeeds without launching a command
// TestStartAlreadyRunning 测试服务器已运行时 CLI 成功且不执行命令
func TestStartAlreadyRunning(t *testing.T) {
	srv := jmxtest.NewServer()
	defer srv.Close()
	srv.SetAttribute(probe.ServerMBean, probe.StartedAttribute, true)
	path := writeConfig(t, srv.Address(), srv.Port())

	out, err := execute(t, "start", "-c", path, "--server", "node1")
	require.NoError(t, err)
	assert.Contains(t, out, lifecycle.MsgAlreadyStarted)
	assert.Contains(t, out, "SUCCESS")
}

// TestShutdownNotRunning tests the not-running short circuit
// TestShutdownNotRunning 测试服务器未运行时直接成功
func TestShutdownNotRunning(t *testing.T) {
	srv := jmxtest.NewServer()
	defer srv.Close()
	srv.SetAttribute(probe.ServerMBean, probe.StartedAttribute, false)
	path := writeConfig(t, srv.Address(), srv.Port())

	out, err := execute(t, "shutdown", "-c", path, "-s", "node1")
	require.NoError(t, err)
	assert.Contains(t, out, lifecycle.MsgNotWorking)
}

// TestUnknownServer tests that an unknown server fails the command
// TestUnknownServer 测试未知服务器导致命令失败
func TestUnknownServer(t *testing.T) {
	path := writeConfig(t, "127.0.0.1", 9990)

	out, err := execute(t, "start", "-c", path, "--server", "missing")
	assert.ErrorIs(t, err, errOperationFailed)
	assert.Contains(t, out, lifecycle.MsgWrongConfig)
}

func TestServersList(t *testing.T) {
	path := writeConfig(t, "127.0.0.1", 9990)

	out, err := execute(t, "servers", "list", "-c", path, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "node1")
	assert.Contains(t, out, "127.0.0.1:9990")

	out, err = execute(t, "servers", "list", "-c", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: node1")
	assert.Contains(t, out, "management_port: 9990")

	_, err = execute(t, "servers", "list", "-c", path, "-o", "json")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, "127.0.0.1", 9990)
	out, err := execute(t, "config", "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("servers:\n  - name: x\n    address: h\n    management_port: 80\n    timeout_seconds: 1\n    install_dir: /opt/jboss\n"), 0o644))
	_, err = execute(t, "config", "validate", "-c", bad)
	assert.Error(t, err)
}

func TestOperationRequest(t *testing.T) {
	f := &operationFlags{server: "node1", properties: "a=1", modules: []string{"a.war"}, stopOnFailure: true}
	req := f.request(lifecycle.OpCheckDeploy)
	assert.Equal(t, lifecycle.OpCheckDeploy, req.Type)
	assert.Equal(t, "a=1", req.ExtraProperties)
	assert.Equal(t, []string{"a.war"}, req.Modules)
	assert.True(t, req.StopOnCheckFailure)
}

func TestEnviron(t *testing.T) {
	t.Setenv("JBOSSCTL_TEST_VAR", "a=b")
	assert.Equal(t, "a=b", environ()["JBOSSCTL_TEST_VAR"])
}

// TestStartReporterFlushesInBackground tests that cached events are published by
// the flush loop before any explicit flush or close
// TestStartReporterFlushesInBackground 测试缓存的事件在显式刷新或关闭前由后台循环发布
func TestStartReporterFlushesInBackground(t *testing.T) {
	var published atomic.Int32
	report := func(_ context.Context, batch []*events.Event) error {
		published.Add(int32(len(batch)))
		return nil
	}
	r := startReporter(report, config.EventsConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	defer r.Close(context.Background())

	r.Report(context.Background(), events.NewEvent("run-1", events.EventOperationStarted, "node1", "start"))
	assert.Eventually(t, func() bool { return published.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, r.Pending())
}
