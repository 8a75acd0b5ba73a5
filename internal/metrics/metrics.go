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

// Package metrics records orchestration metrics and exports them to a Prometheus
// Pushgateway or a node-exporter textfile.
// metrics 包记录编排指标，并导出到 Prometheus Pushgateway 或 node-exporter 文本文件。
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "jbossctl"

// GroupingKey is the Pushgateway grouping label for the server an invocation
// acted on. It must not match any metric label, or the push is rejected.
// GroupingKey 是 Pushgateway 中标识本次调用所操作服务器的分组标签，不能与任何指标标签重名，否则推送会被拒绝。
const GroupingKey = "instance"

// Result label values
// 结果标签值
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Probe outcome label values
// 探测结果标签值
const (
	ProbeReached     = "reached"
	ProbeTimeout     = "timeout"
	ProbeUnreachable = "unreachable"
	ProbeError       = "error"
	ProbeInterrupted = "interrupted"
)

// Metrics holds the orchestration collectors in a private registry. A nil
// *Metrics records nothing.
// Metrics 在私有注册表中保存编排相关的采集器，nil 的 *Metrics 不记录任何内容。
type Metrics struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	probes            *prometheus.CounterVec
	probeDuration     prometheus.Histogram
	moduleChecks      *prometheus.CounterVec
	commands          *prometheus.CounterVec
}

// New creates and registers the collectors
// New 创建并注册采集器
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Number of lifecycle operations by type, target and result",
			},
			[]string{"operation", "target", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle operations",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Number of readiness probes by outcome",
			},
			[]string{"outcome"},
		),
		probeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Duration of readiness probes",
				Buckets:   prometheus.DefBuckets,
			},
		),
		moduleChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_checks_total",
				Help:      "Number of module deployment checks by kind and result",
			},
			[]string{"kind", "result"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Number of start and stop commands by action and result",
			},
			[]string{"action", "result"},
		),
	}
	m.registry.MustRegister(m.operations, m.operationDuration, m.probes, m.probeDuration, m.moduleChecks, m.commands)
	return m
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation records one finished operation
// RecordOperation 记录一次完成的操作
func (m *Metrics) RecordOperation(operation, target string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, target, result(success)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordProbe records one readiness probe
// RecordProbe 记录一次就绪探测
func (m *Metrics) RecordProbe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(outcome).Inc()
	m.probeDuration.Observe(d.Seconds())
}

// RecordModuleCheck records the health of one module
// RecordModuleCheck 记录单个模块的健康状态
func (m *Metrics) RecordModuleCheck(kind string, healthy bool) {
	if m == nil {
		return
	}
	m.moduleChecks.WithLabelValues(kind, result(healthy)).Inc()
}

// RecordCommand records one start or stop command
// RecordCommand 记录一次启动或停止命令
func (m *Metrics) RecordCommand(action string, success bool) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(action, result(success)).Inc()
}

// Push sends the collected metrics to a Pushgateway, replacing the job group
// Push 将采集的指标推送到 Pushgateway，替换该 job 分组
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if m == nil {
		return nil
	}
	pusher := push.New(url, job).Gatherer(m.registry)
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}

// WriteTextfile writes the metrics in the text exposition format for the
// node-exporter textfile collector
// WriteTextfile 以文本格式写出指标，供 node-exporter 文本文件采集器使用
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
