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
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jbossctl/jbossctl/internal/events"
	"github.com/jbossctl/jbossctl/internal/jmx"
	"github.com/jbossctl/jbossctl/internal/jmx/jmxtest"
	"github.com/jbossctl/jbossctl/internal/probe"
	"github.com/jbossctl/jbossctl/internal/process"
	"github.com/jbossctl/jbossctl/internal/target"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

// fakeLauncher records launch specs instead of spawning processes
// fakeLauncher 记录启动规格而不是真正创建进程
type fakeLauncher struct {
	mu       sync.Mutex
	specs    []process.LaunchSpec
	err      error
	onLaunch func(spec process.LaunchSpec)
}

func (f *fakeLauncher) Launch(_ context.Context, spec process.LaunchSpec) error {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	err, hook := f.err, f.onLaunch
	f.mu.Unlock()
	if hook != nil {
		hook(spec)
	}
	return err
}

func (f *fakeLauncher) launches() []process.LaunchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.LaunchSpec(nil), f.specs...)
}

// stops counts launches that wait for completion, which only stop commands do
func (f *fakeLauncher) stops() int {
	n := 0
	for _, s := range f.launches() {
		if s.Wait {
			n++
		}
	}
	return n
}

// stateConn reports a switchable Started attribute
type stateConn struct {
	running *atomic.Bool
}

func (c stateConn) ReadAttribute(context.Context, string, string) (any, error) {
	return c.running.Load(), nil
}

func (c stateConn) Query(context.Context, string) ([]string, error) { return nil, nil }

func (c stateConn) Close() error { return nil }

// stateDialer always connects and serves the running flag
type stateDialer struct {
	running atomic.Bool
}

func (d *stateDialer) Dial(context.Context, string, int) (jmx.Conn, error) {
	return stateConn{running: &d.running}, nil
}

// eventRecorder collects reported event types
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) Report(_ context.Context, e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newRemoteTarget(t require.TestingT, name, address string, port, timeout int) target.Descriptor {
	d, err := target.NewRemote(target.RemoteParams{
		Common: target.Common{
			Name:           name,
			Address:        address,
			ManagementPort: port,
			TimeoutSeconds: timeout,
		},
		StartCommand: "/opt/jboss/bin/run.sh -c default",
		StopCommand:  "/opt/jboss/bin/shutdown.sh -S",
	})
	require.NoError(t, err)
	return d
}

// fixture wires an orchestrator to a fake Jolokia endpoint and a fake launcher
// fixture 将编排器连接到模拟 Jolokia 端点和模拟启动器
type fixture struct {
	srv      *jmxtest.Server
	launcher *fakeLauncher
	registry *target.Registry
	events   *eventRecorder
	orch     *Orchestrator
	sink     *bytes.Buffer
}

func newFixture(t *testing.T, timeout int, opts ...Option) *fixture {
	t.Helper()
	srv := jmxtest.NewServer()
	t.Cleanup(srv.Close)

	registry, err := target.NewRegistry(newRemoteTarget(t, "node1", srv.Address(), srv.Port(), timeout))
	require.NoError(t, err)

	f := &fixture{
		srv:      srv,
		launcher: &fakeLauncher{},
		registry: registry,
		events:   &eventRecorder{},
		sink:     &bytes.Buffer{},
	}
	p := probe.New(jmx.NewJolokiaDialer(jmx.JolokiaConfig{RequestTimeout: time.Second}), testInterval)
	runner := process.NewRunner(f.launcher, process.WithPlatform("linux"))
	opts = append([]Option{WithEvents(f.events), WithEnv(map[string]string{})}, opts...)
	f.orch = New(registry, p, runner, opts...)
	return f
}

func (f *fixture) setRunning(running bool) {
	f.srv.SetAttribute(probe.ServerMBean, probe.StartedAttribute, running)
}

func (f *fixture) execute(req OperationRequest) bool {
	return f.orch.Execute(context.Background(), "node1", req, f.sink)
}
