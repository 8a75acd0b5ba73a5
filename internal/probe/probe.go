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

// Package probe decides whether a server reached a desired running state by
// polling its management endpoint under a bounded timeout.
// probe 包通过在有限超时内轮询管理端点，判断服务器是否达到期望的运行状态。
//
// A probe has two independent budgets that share the same timeout value:
// 探测包含两个共享同一超时值的独立预算：
// - connect: one dial attempt per interval, up to timeout attempts / 连接：每个间隔尝试一次，最多 timeout 次
// - poll: one sample per interval for up to timeout intervals / 轮询：每个间隔采样一次，最多 timeout 个间隔
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jbossctl/jbossctl/internal/jmx"
	"github.com/jbossctl/jbossctl/internal/logger"
	"github.com/jbossctl/jbossctl/internal/otel_trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Well-known server MBean
// 服务器的固定 MBean
const (
	ServerMBean      = "jboss.system:type=Server"
	StartedAttribute = "Started"

	// DefaultInterval is the probe cadence
	// DefaultInterval 是探测节奏
	DefaultInterval = time.Second
)

// ErrProbeAborted indicates the context was cancelled while connecting
// ErrProbeAborted 表示在连接阶段上下文被取消
var ErrProbeAborted = errors.New("probe: aborted while connecting")

// ConnectError reports that every connect attempt failed. It matches
// jmx.ErrConnection through errors.Is.
// ConnectError 报告所有连接尝试均失败，可通过 errors.Is 匹配 jmx.ErrConnection。
type ConnectError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("probe: cannot connect to %s after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == jmx.ErrConnection }

// Result is the outcome of one AwaitState call
// Result 是一次 AwaitState 调用的结果
type Result struct {
	// Reached is true when the Started attribute matched the desired state
	// Reached 为 true 表示 Started 属性与期望状态一致
	Reached bool

	// Running is the last observed value of the Started attribute
	// Running 是最后一次观察到的 Started 属性值
	Running bool

	// Connected is true when a management connection was obtained
	Connected bool

	// TimedOut is true when the poll window elapsed without a match
	// TimedOut 为 true 表示轮询窗口耗尽仍未匹配
	TimedOut bool

	ConnectAttempts int
	Samples         int
	Elapsed         time.Duration
}

// Probe polls a management endpoint for the server state
// Probe 轮询管理端点以获取服务器状态
type Probe struct {
	dialer   jmx.Dialer
	interval time.Duration
}

// New creates a probe; a non-positive interval uses DefaultInterval
// New 创建探测器；非正间隔使用 DefaultInterval
func New(dialer jmx.Dialer, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Probe{dialer: dialer, interval: interval}
}

// Interval returns the probe cadence
func (p *Probe) Interval() time.Duration {
	return p.interval
}

func budget(timeoutSeconds int) int {
	if timeoutSeconds < 1 {
		return 1
	}
	return timeoutSeconds
}

// sleep waits one interval; false means ctx was cancelled first
func (p *Probe) sleep(ctx context.Context) bool {
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Connect dials the endpoint once per interval, waiting before each attempt, for
// up to timeoutSeconds attempts.
// Connect 每个间隔拨号一次（每次尝试前先等待），最多尝试 timeoutSeconds 次。
func (p *Probe) Connect(ctx context.Context, address string, port, timeoutSeconds int) (jmx.Conn, int, error) {
	endpoint := fmt.Sprintf("%s:%d", address, port)
	attempts := budget(timeoutSeconds)

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if !p.sleep(ctx) {
			return nil, i - 1, fmt.Errorf("%w: %v", ErrProbeAborted, ctx.Err())
		}
		conn, err := p.dialer.Dial(ctx, address, port)
		if err == nil {
			return conn, i, nil
		}
		if ctx.Err() != nil {
			return nil, i, fmt.Errorf("%w: %v", ErrProbeAborted, ctx.Err())
		}
		lastErr = err
		logger.DebugF(ctx, "[Probe] connect attempt %d/%d to %s failed: %v", i, attempts, endpoint, err)
	}
	return nil, attempts, &ConnectError{Endpoint: endpoint, Attempts: attempts, Err: lastErr}
}

// AwaitState connects to address:port and polls the Started attribute until it
// equals desiredRunning or the poll window elapses.
//
// With ignoreConnectErrors, connect and read failures are reported as a negative
// result with a nil error. Cancelling ctx during the poll is a negative result;
// cancelling it while connecting returns ErrProbeAborted.
//
// AwaitState 连接 address:port 并轮询 Started 属性，直到其等于 desiredRunning 或轮询窗口耗尽。
// 设置 ignoreConnectErrors 时，连接和读取失败以否定结果返回且错误为 nil。
// 轮询期间取消 ctx 视为否定结果；连接期间取消则返回 ErrProbeAborted。
func (p *Probe) AwaitState(ctx context.Context, address string, port, timeoutSeconds int, desiredRunning, ignoreConnectErrors bool) (Result, error) {
	ctx, span := otel_trace.Start(ctx, "probe.AwaitState")
	defer span.End()
	span.SetAttributes(
		attribute.String("probe.endpoint", fmt.Sprintf("%s:%d", address, port)),
		attribute.Int("probe.timeout", timeoutSeconds),
		attribute.Bool("probe.desired_running", desiredRunning),
		attribute.Bool("probe.ignore_connect_errors", ignoreConnectErrors),
	)

	begin := time.Now()
	res := Result{}

	conn, attempts, err := p.Connect(ctx, address, port, timeoutSeconds)
	res.ConnectAttempts = attempts
	if err != nil {
		res.Elapsed = time.Since(begin)
		if ignoreConnectErrors && !errors.Is(err, ErrProbeAborted) {
			span.SetAttributes(attribute.Bool("probe.connected", false))
			return res, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	defer conn.Close()
	res.Connected = true

	err = p.poll(ctx, conn, timeoutSeconds, desiredRunning, &res)
	res.Elapsed = time.Since(begin)
	span.SetAttributes(
		attribute.Bool("probe.reached", res.Reached),
		attribute.Int("probe.samples", res.Samples),
	)
	if err != nil {
		if ignoreConnectErrors {
			logger.DebugF(ctx, "[Probe] ignoring read failure on %s:%d: %v", address, port, err)
			return res, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

// poll samples the Started attribute once per interval, waiting before each
// sample, until the window of timeoutSeconds intervals is used up
// poll 每个间隔采样一次 Started 属性（采样前先等待），直到 timeoutSeconds 个间隔的窗口耗尽
func (p *Probe) poll(ctx context.Context, conn jmx.Conn, timeoutSeconds int, desired bool, res *Result) error {
	window := time.Duration(budget(timeoutSeconds)) * p.interval
	start := time.Now()

	for time.Since(start) < window {
		if !p.sleep(ctx) {
			return nil
		}
		res.Samples++
		running, err := jmx.ReadBool(ctx, conn, ServerMBean, StartedAttribute)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("probe: read %s %s: %w", ServerMBean, StartedAttribute, err)
		}
		res.Running = running
		if running == desired {
			res.Reached = true
			return nil
		}
	}
	res.TimedOut = true
	return nil
}

// IsRunning is AwaitState with desiredRunning set
// IsRunning 是 desiredRunning 为 true 的 AwaitState
func (p *Probe) IsRunning(ctx context.Context, address string, port, timeoutSeconds int, ignoreConnectErrors bool) (Result, error) {
	return p.AwaitState(ctx, address, port, timeoutSeconds, true, ignoreConnectErrors)
}
