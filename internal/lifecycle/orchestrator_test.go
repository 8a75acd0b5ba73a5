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

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jbossctl/jbossctl/internal/deploy"
	"github.com/jbossctl/jbossctl/internal/events"
	"github.com/jbossctl/jbossctl/internal/metrics"
	"github.com/jbossctl/jbossctl/internal/process"
	"github.com/jbossctl/jbossctl/internal/target"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	warMBean = "jboss.web.deployment:war=/a,id=1"
	ejbMBean = "jboss.j2ee:module=b-ejb.jar,service=EjbModule"
)

// TestStartAlreadyRunning tests that a running server is never started again
// TestStartAlreadyRunning 测试已运行的服务器不会被再次启动
func TestStartAlreadyRunning(t *testing.T) {
	for _, op := range []OperationType{OpStart, OpStartAndWait} {
		t.Run(string(op), func(t *testing.T) {
			f := newFixture(t, 2)
			f.setRunning(true)

			assert.True(t, f.execute(OperationRequest{Type: op}))
			assert.Empty(t, f.launcher.launches())
			assert.Contains(t, f.sink.String(), MsgAlreadyStarted)
			assert.Contains(t, f.sink.String(), "Finished "+string(op)+" on node1 in ")
			assert.Contains(t, f.sink.String(), ": SUCCESS")
		})
	}
}

// TestStartDispatches tests the fire-and-forget start
// TestStartDispatches 测试只触发不等待的启动
func TestStartDispatches(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(false)

	assert.True(t, f.execute(OperationRequest{Type: OpStart, ExtraProperties: "jboss.bind=0.0.0.0"}))

	launches := f.launcher.launches()
	require.Len(t, launches, 1)
	assert.False(t, launches[0].Wait)
	assert.Equal(t, "/bin/sh", launches[0].Args[0])
	assert.Contains(t, launches[0].Args, "-Djboss.bind=0.0.0.0")
	assert.Equal(t, []events.EventType{events.EventOperationStarted, events.EventOperationFinished}, f.events.types())
}

// TestStartUnreachable tests that the pre-check ignores connection failures
// TestStartUnreachable 测试预检查忽略连接失败
func TestStartUnreachable(t *testing.T) {
	f := newFixture(t, 2)
	f.srv.Close()

	assert.True(t, f.execute(OperationRequest{Type: OpStart}))
	assert.Len(t, f.launcher.launches(), 1)
	assert.Contains(t, f.sink.String(), "State of node1: unreachable")
}

// TestStartAndWaitTimeout tests a start whose server never comes up
// TestStartAndWaitTimeout 测试服务器始终未启动的情况
func TestStartAndWaitTimeout(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(false)

	assert.False(t, f.execute(OperationRequest{Type: OpStartAndWait}))
	assert.Len(t, f.launcher.launches(), 1)
	assert.Contains(t, f.sink.String(), MsgStartTimeout)
	assert.Contains(t, f.sink.String(), ": FAILURE")
	assert.NotContains(t, f.events.types(), events.EventServerStarted)
}

// TestStartAndWaitStarted tests a server that comes up after the start command
// TestStartAndWaitStarted 测试启动命令后服务器成功启动
func TestStartAndWaitStarted(t *testing.T) {
	f := newFixture(t, 20)
	f.setRunning(false)
	f.launcher.onLaunch = func(process.LaunchSpec) { f.setRunning(true) }

	assert.True(t, f.execute(OperationRequest{Type: OpStartAndWait}))
	assert.Len(t, f.launcher.launches(), 1)
	assert.Contains(t, f.sink.String(), MsgStarted)
	assert.Equal(t, []events.EventType{
		events.EventOperationStarted,
		events.EventServerStarted,
		events.EventOperationFinished,
	}, f.events.types())
}

// TestStartAndWaitUnreachable tests that the post-check does not ignore connection failures
// TestStartAndWaitUnreachable 测试后置检查不忽略连接失败
func TestStartAndWaitUnreachable(t *testing.T) {
	f := newFixture(t, 2)
	f.srv.Close()

	assert.False(t, f.execute(OperationRequest{Type: OpStartAndWait}))
	assert.Len(t, f.launcher.launches(), 1)
	assert.Contains(t, f.sink.String(), "State check of node1 failed")
	assert.Contains(t, f.sink.String(), MsgStartTimeout)
}

// TestStartCommandFailure tests that a failed start command is a failure
// TestStartCommandFailure 测试启动命令失败
func TestStartCommandFailure(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(false)
	f.launcher.err = errors.New("fork failed")

	assert.False(t, f.execute(OperationRequest{Type: OpStartAndWait}))
	assert.Contains(t, f.sink.String(), MsgExecutionError)
	assert.Contains(t, f.sink.String(), "fork failed")
}

// TestStartInvalidProperties tests that malformed properties fail before any launch
func TestStartInvalidProperties(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(false)

	assert.False(t, f.execute(OperationRequest{Type: OpStart, ExtraProperties: "a=1; rm -rf /"}))
	assert.Empty(t, f.launcher.launches())
	assert.Contains(t, f.sink.String(), MsgExecutionError)
}

// TestShutdownNotRunning tests that a stopped server is not stopped again
// TestShutdownNotRunning 测试未运行的服务器不会被再次停止
func TestShutdownNotRunning(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(false)

	assert.True(t, f.execute(OperationRequest{Type: OpShutdown}))
	assert.Empty(t, f.launcher.launches())
	assert.Contains(t, f.sink.String(), MsgNotWorking)
}

// TestShutdownRunning tests the stop path
// TestShutdownRunning 测试停止流程
func TestShutdownRunning(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(true)

	assert.True(t, f.execute(OperationRequest{Type: OpShutdown}))
	assert.Equal(t, 1, f.launcher.stops())
	assert.Contains(t, f.events.types(), events.EventServerStopped)
}

// TestShutdownExitError tests a stop command that exits non-zero
// TestShutdownExitError 测试以非零状态退出的停止命令
func TestShutdownExitError(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(true)
	f.launcher.err = &process.ExitError{Code: 1}

	assert.False(t, f.execute(OperationRequest{Type: OpShutdown}))
	assert.Contains(t, f.sink.String(), MsgExecutionError)
	assert.NotContains(t, f.events.types(), events.EventServerStopped)
}

// TestCheckDeployStopOnFailure tests the stop triggered by a failed check
// TestCheckDeployStopOnFailure 测试检查失败触发的停止
func TestCheckDeployStopOnFailure(t *testing.T) {
	tests := []struct {
		name      string
		stop      bool
		wantStops int
	}{
		{"stop on failure", true, 1},
		{"keep running", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2)
			f.setRunning(true)
			f.srv.SetAttribute(warMBean, deploy.StateAttribute, deploy.StateStarted)
			f.srv.SetAttribute(ejbMBean, deploy.StateAttribute, deploy.StateStarted)

			ok := f.execute(OperationRequest{
				Type:               OpCheckDeploy,
				Modules:            []string{"a.war", "b-ejb.jar", "c.xyz"},
				StopOnCheckFailure: tt.stop,
			})
			assert.False(t, ok)
			assert.Equal(t, tt.wantStops, f.launcher.stops())
			assert.Len(t, f.launcher.launches(), tt.wantStops)

			out := f.sink.String()
			assert.Contains(t, out, "Module a.war is started")
			assert.Contains(t, out, "Module b-ejb.jar is started")
			assert.Contains(t, out, "Module c.xyz: unsupported file type")
			assert.Contains(t, out, "Deployment check on node1 failed: c.xyz")
			assert.Contains(t, f.events.types(), events.EventDeployFailed)
		})
	}
}

// TestCheckDeployStopFailureIgnored tests that a failing stop does not change the result
func TestCheckDeployStopFailureIgnored(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(true)
	f.launcher.err = &process.ExitError{Code: 2}

	ok := f.execute(OperationRequest{Type: OpCheckDeploy, Modules: []string{"missing.ear"}, StopOnCheckFailure: true})
	assert.False(t, ok)
	assert.Equal(t, 1, f.launcher.stops())
	assert.Contains(t, f.sink.String(), MsgExecutionError)
}

// TestCheckDeployHealthy tests the all-started case
// TestCheckDeployHealthy 测试全部模块已启动
func TestCheckDeployHealthy(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(true)
	f.srv.SetAttribute(warMBean, deploy.StateAttribute, deploy.StateStarted)
	f.srv.SetAttribute(ejbMBean, deploy.StateAttribute, deploy.StateStarted)

	ok := f.execute(OperationRequest{Type: OpCheckDeploy, Modules: []string{"a.war", "b-ejb.jar"}, StopOnCheckFailure: true})
	assert.True(t, ok)
	assert.Empty(t, f.launcher.launches())
	assert.Contains(t, f.sink.String(), "All 2 module(s) on node1 are started.")
}

// TestCheckDeployUnreachable tests that an unreachable server fails the check
// TestCheckDeployUnreachable 测试服务器不可达时检查失败
func TestCheckDeployUnreachable(t *testing.T) {
	f := newFixture(t, 2)
	f.srv.Close()

	ok := f.execute(OperationRequest{Type: OpCheckDeploy, Modules: []string{"a.war"}, StopOnCheckFailure: true})
	assert.False(t, ok)
	assert.Empty(t, f.launcher.launches())
	assert.Contains(t, f.sink.String(), MsgNotWorking)
}

// TestEntryGuard tests that configuration errors stop the run before any probe or command
// TestEntryGuard 测试配置错误会在任何探测或命令之前终止运行
func TestEntryGuard(t *testing.T) {
	tests := []struct {
		name   string
		target string
		req    OperationRequest
	}{
		{"unknown target", "node9", OperationRequest{Type: OpStart}},
		{"unknown operation", "node1", OperationRequest{Type: "restart"}},
		{"no modules", "node1", OperationRequest{Type: OpCheckDeploy, Modules: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2)
			f.setRunning(true)

			ok := f.orch.Execute(context.Background(), tt.target, tt.req, f.sink)
			assert.False(t, ok)
			assert.Empty(t, f.launcher.launches())
			assert.Zero(t, f.srv.Versions())
			assert.Empty(t, f.events.types())
			assert.True(t, strings.HasPrefix(f.sink.String(), MsgWrongConfig))
		})
	}
}

func TestResolve(t *testing.T) {
	registry, err := target.NewRegistry(newRemoteTarget(t, "node1", "127.0.0.1", 9990, 5))
	require.NoError(t, err)
	snap := registry.Snapshot()

	_, err = resolve(snap, "node2", OperationRequest{Type: OpStart})
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = resolve(snap, "node1", OperationRequest{Type: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = resolve(snap, "node1", OperationRequest{Type: OpCheckDeploy})
	assert.ErrorIs(t, err, ErrNoModules)

	d, err := resolve(snap, "node1", OperationRequest{Type: OpCheckDeploy, Modules: []string{"a.war"}})
	require.NoError(t, err)
	assert.Equal(t, "node1", d.Name())
}

func TestParseOperationType(t *testing.T) {
	for in, want := range map[string]OperationType{
		"start":          OpStart,
		"START_AND_WAIT": OpStartAndWait,
		" Shutdown ":     OpShutdown,
		"check-deploy":   OpCheckDeploy,
	} {
		got, err := ParseOperationType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseOperationType("restart")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

// TestSnapshotIsolation tests that a registry change during a run does not affect it
// TestSnapshotIsolation 测试运行期间的注册表变更不影响本次运行
func TestSnapshotIsolation(t *testing.T) {
	f := newFixture(t, 20)
	f.setRunning(false)
	f.launcher.onLaunch = func(process.LaunchSpec) {
		require.NoError(t, f.registry.Replace(nil))
		f.setRunning(true)
	}

	assert.True(t, f.execute(OperationRequest{Type: OpStartAndWait}))
	assert.Zero(t, f.registry.Snapshot().Len())
	assert.False(t, f.execute(OperationRequest{Type: OpStart}), "later runs see the new registry")
}

// TestMetricsRecorded tests that runs are counted
func TestMetricsRecorded(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, 2, WithMetrics(m), WithPreCheckTimeout(1))
	f.setRunning(true)

	assert.True(t, f.execute(OperationRequest{Type: OpStart}))
	assert.True(t, f.execute(OperationRequest{Type: OpStart}))

	count, err := testutil.GatherAndCount(m.Registry(), "jbossctl_operations_total", "jbossctl_probes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilSink(t *testing.T) {
	f := newFixture(t, 2)
	f.setRunning(true)
	assert.True(t, f.orch.Execute(context.Background(), "node1", OperationRequest{Type: OpStart}, nil))
}
