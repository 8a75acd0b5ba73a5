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

// Package lifecycle runs start, stop and deployment-check operations against a
// configured server and reports the outcome as a single boolean plus an ordered
// operator transcript.
// lifecycle 包针对已配置的服务器执行启动、停止和部署检查操作，
// 并以单个布尔值加有序的运维日志输出结果。
//
// | Operation      | Pre-check                        | Action         | Post-check                  |
// |----------------|----------------------------------|----------------|-----------------------------|
// | start          | running? (short bound, ignore)   | start if down  | none                        |
// | start-and-wait | running? (short bound, ignore)   | start if down  | running? (target timeout)   |
// | shutdown       | running? (short bound, ignore)   | stop if up     | none                        |
// | check-deploy   | running? (short bound, ignore)   | none           | module states, optional stop|
package lifecycle

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbossctl/jbossctl/internal/config"
	"github.com/jbossctl/jbossctl/internal/deploy"
	"github.com/jbossctl/jbossctl/internal/events"
	"github.com/jbossctl/jbossctl/internal/jmx"
	"github.com/jbossctl/jbossctl/internal/logger"
	"github.com/jbossctl/jbossctl/internal/metrics"
	"github.com/jbossctl/jbossctl/internal/otel_trace"
	"github.com/jbossctl/jbossctl/internal/probe"
	"github.com/jbossctl/jbossctl/internal/process"
	"github.com/jbossctl/jbossctl/internal/target"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Operator-facing messages
// 面向运维人员的消息
const (
	MsgAlreadyStarted = "JBoss AS already started."
	MsgStarted        = "JBoss AS started!"
	MsgStartTimeout   = "JBoss AS is not stared before timeout has expired!"
	MsgNotWorking     = "JBoss AS is not working."
	MsgWrongConfig    = "Wrong configuration of plugin. Step error."
	MsgExecutionError = "Error during execution."
)

// EventReporter receives lifecycle events
// EventReporter 接收生命周期事件
type EventReporter interface {
	Report(ctx context.Context, e *events.Event)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithEnv sets the environment used to expand start properties
// WithEnv 设置用于展开启动属性的环境变量
func WithEnv(env map[string]string) Option {
	return func(o *Orchestrator) { o.env = env }
}

// WithPreCheckTimeout sets the bound of the state check run before an action
// WithPreCheckTimeout 设置操作前状态检查的时限
func WithPreCheckTimeout(seconds int) Option {
	return func(o *Orchestrator) {
		if seconds > 0 {
			o.preCheckTimeout = seconds
		}
	}
}

// WithMetrics records operation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEvents reports lifecycle events
func WithEvents(r EventReporter) Option {
	return func(o *Orchestrator) { o.events = r }
}

// Orchestrator runs lifecycle operations. It reads a registry snapshot at the
// start of each run and never mutates the registry.
// Orchestrator 执行生命周期操作，每次运行开始时读取注册表快照且从不修改注册表。
type Orchestrator struct {
	registry *target.Registry
	probe    *probe.Probe
	runner   *process.Runner
	checker  *deploy.Checker

	env             map[string]string
	preCheckTimeout int
	metrics         *metrics.Metrics
	events          EventReporter
}

// New creates an orchestrator
// New 创建编排器
func New(registry *target.Registry, p *probe.Probe, runner *process.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:        registry,
		probe:           p,
		runner:          runner,
		checker:         deploy.NewChecker(p),
		preCheckTimeout: config.DefaultPreCheckTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the state of one Execute call
type run struct {
	id     string
	target target.Descriptor
	req    OperationRequest
	out    *narrator
}

// Execute runs one operation on the named target and writes progress to sink.
// Errors from lower layers are logged and reported as false.
// Execute 在指定目标上执行一次操作并将进度写入 sink，下层错误会被记录并以 false 返回。
func (o *Orchestrator) Execute(ctx context.Context, targetName string, req OperationRequest, sink io.Writer) bool {
	runID := uuid.NewString()
	ctx, span := otel_trace.Start(ctx, "lifecycle.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("lifecycle.run_id", runID),
		attribute.String("lifecycle.target", targetName),
		attribute.String("lifecycle.operation", string(req.Type)),
	)

	out := newNarrator(sink)
	begin := time.Now()

	t, err := resolve(o.registry.Snapshot(), targetName, req)
	if err != nil {
		out.printf(MsgWrongConfig)
		out.printf("%v", err)
		logger.ErrorF(ctx, "[Lifecycle] run=%s rejected %s on %q: %v", runID, req.Type, targetName, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false
	}

	r := &run{id: runID, target: t, req: req, out: out}
	logger.InfoF(ctx, "[Lifecycle] run=%s %s on %s", runID, req.Type, t)
	o.emit(ctx, r, events.EventOperationStarted, true, "")

	var ok bool
	switch req.Type {
	case OpStart:
		ok = o.start(ctx, r, false)
	case OpStartAndWait:
		ok = o.start(ctx, r, true)
	case OpShutdown:
		ok = o.shutdown(ctx, r)
	case OpCheckDeploy:
		ok = o.checkDeploy(ctx, r)
	}

	elapsed := time.Since(begin)
	status := "SUCCESS"
	if !ok {
		status = "FAILURE"
		span.SetStatus(codes.Error, "operation failed")
	}
	out.printf("Finished %s on %s in %s: %s", req.Type, t.Name(), elapsed.Round(time.Millisecond), status)
	logger.InfoF(ctx, "[Lifecycle] run=%s %s on %s finished in %s: %s", runID, req.Type, t.Name(), elapsed, status)

	span.SetAttributes(attribute.Bool("lifecycle.success", ok))
	o.metrics.RecordOperation(string(req.Type), t.Name(), ok, elapsed)
	o.emit(ctx, r, events.EventOperationFinished, ok, status)
	return ok
}

// isRunning probes the target and narrates the result. Errors are narrated,
// logged and returned; the boolean is false whenever err is non-nil.
// isRunning 探测目标并输出结果，错误会被输出、记录并返回；err 非空时布尔值总为 false。
func (o *Orchestrator) isRunning(ctx context.Context, r *run, timeoutSeconds int, ignoreErrors bool) (bool, error) {
	t := r.target
	r.out.printf("Checking state of %s at %s (timeout %ds)...", t.Name(), t.Endpoint(), timeoutSeconds)

	res, err := o.probe.IsRunning(ctx, t.Address(), t.ManagementPort(), timeoutSeconds, ignoreErrors)
	o.metrics.RecordProbe(probeOutcome(res, err), res.Elapsed)
	if err != nil {
		r.out.printf("State check of %s failed: %v", t.Name(), err)
		logger.ErrorF(ctx, "[Lifecycle] run=%s probe of %s failed: %v", r.id, t.Endpoint(), err)
		return false, err
	}

	switch {
	case res.Reached:
		r.out.printf("State of %s: running", t.Name())
	case !res.Connected:
		r.out.printf("State of %s: unreachable", t.Name())
	default:
		r.out.printf("State of %s: not running", t.Name())
	}
	return res.Reached, nil
}

func probeOutcome(res probe.Result, err error) string {
	switch {
	case errors.Is(err, probe.ErrProbeAborted):
		return metrics.ProbeInterrupted
	case errors.Is(err, jmx.ErrConnection):
		return metrics.ProbeUnreachable
	case err != nil:
		return metrics.ProbeError
	case res.Reached:
		return metrics.ProbeReached
	case res.TimedOut:
		return metrics.ProbeTimeout
	case !res.Connected:
		return metrics.ProbeUnreachable
	default:
		return metrics.ProbeInterrupted
	}
}

func (o *Orchestrator) start(ctx context.Context, r *run, wait bool) bool {
	running, _ := o.isRunning(ctx, r, o.preCheckTimeout, true)
	if running {
		r.out.printf(MsgAlreadyStarted)
		return true
	}

	r.out.printf("Starting %s...", r.target)
	err := o.runner.Start(ctx, r.target, r.req.ExtraProperties, o.env, r.out)
	o.metrics.RecordCommand(string(process.ActionStart), err == nil)
	if err != nil {
		o.commandFailed(ctx, r, err)
		return false
	}
	if !wait {
		r.out.printf("Start command for %s dispatched.", r.target.Name())
		return true
	}

	started, err := o.isRunning(ctx, r, r.target.TimeoutSeconds(), false)
	if err == nil && started {
		r.out.printf(MsgStarted)
		o.emit(ctx, r, events.EventServerStarted, true, MsgStarted)
		return true
	}
	r.out.printf(MsgStartTimeout)
	return false
}

func (o *Orchestrator) shutdown(ctx context.Context, r *run) bool {
	running, _ := o.isRunning(ctx, r, o.preCheckTimeout, true)
	if !running {
		r.out.printf(MsgNotWorking)
		return true
	}
	if !o.stop(ctx, r) {
		return false
	}
	o.emit(ctx, r, events.EventServerStopped, true, "")
	return true
}

func (o *Orchestrator) stop(ctx context.Context, r *run) bool {
	r.out.printf("Stopping %s...", r.target)
	err := o.runner.Stop(ctx, r.target, r.out)
	o.metrics.RecordCommand(string(process.ActionStop), err == nil)
	if err != nil {
		o.commandFailed(ctx, r, err)
		return false
	}
	r.out.printf("Stop command for %s completed.", r.target.Name())
	return true
}

func (o *Orchestrator) commandFailed(ctx context.Context, r *run, err error) {
	r.out.printf(MsgExecutionError)
	r.out.printf("%v", err)
	logger.ErrorF(ctx, "[Lifecycle] run=%s command on %s failed: %v", r.id, r.target.Name(), err)
}

func (o *Orchestrator) checkDeploy(ctx context.Context, r *run) bool {
	running, _ := o.isRunning(ctx, r, o.preCheckTimeout, true)
	if !running {
		r.out.printf(MsgNotWorking)
		return false
	}

	t := r.target
	r.out.printf("Checking modules on %s: %s", t.Name(), strings.Join(r.req.Modules, ", "))
	healthy, results := o.checker.CheckModules(ctx, t.Address(), t.ManagementPort(), t.TimeoutSeconds(), r.req.Modules)

	failed := make(map[string]string)
	for _, res := range results {
		o.metrics.RecordModuleCheck(res.Module.Kind.String(), res.Healthy)
		if errors.Is(res.Err, deploy.ErrUnsupportedModuleKind) {
			r.out.printf("Module %s: unsupported file type, expected .ear, -ejb.jar or .war", res.Module.ID)
		} else {
			r.out.printf("Module %s", res)
		}
		if !res.Healthy {
			failed[res.Module.ID] = res.String()
		}
	}
	if healthy {
		r.out.printf("All %d module(s) on %s are started.", len(results), t.Name())
		return true
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	r.out.printf("Deployment check on %s failed: %s", t.Name(), strings.Join(names, ", "))
	o.emitDetails(ctx, r, events.EventDeployFailed, false, "deployment check failed", failed)

	if r.req.StopOnCheckFailure {
		r.out.printf("Stopping %s after failed deployment check.", t.Name())
		if o.stop(ctx, r) {
			o.emit(ctx, r, events.EventServerStopped, true, "stopped after failed deployment check")
		}
	}
	return false
}

func (o *Orchestrator) emit(ctx context.Context, r *run, eventType events.EventType, success bool, message string) {
	o.emitDetails(ctx, r, eventType, success, message, nil)
}

func (o *Orchestrator) emitDetails(ctx context.Context, r *run, eventType events.EventType, success bool, message string, details map[string]string) {
	if o.events == nil {
		return
	}
	e := events.NewEvent(r.id, eventType, r.target.Name(), string(r.req.Type))
	e.Success = success
	e.Message = message
	e.Details = details
	o.events.Report(ctx, e)
}
