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

// Package deploy verifies that application modules deployed on a server are in
// the STARTED state.
// deploy 包校验服务器上部署的应用模块是否处于 STARTED 状态。
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbossctl/jbossctl/internal/jmx"
	"github.com/jbossctl/jbossctl/internal/logger"
	"github.com/jbossctl/jbossctl/internal/otel_trace"
	"github.com/jbossctl/jbossctl/internal/probe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StateStarted is the State attribute value of a running module
// StateStarted 是运行中模块的 State 属性值
const StateStarted = 3

// StateAttribute holds the deployment state of a module MBean
const StateAttribute = "State"

var (
	// ErrUnsupportedModuleKind is returned for module names without a known suffix
	// ErrUnsupportedModuleKind 表示模块名没有可识别的后缀
	ErrUnsupportedModuleKind = errors.New("deploy: unsupported module kind")

	// ErrModuleCheck wraps a failed query for a single module
	// ErrModuleCheck 包装单个模块的查询失败
	ErrModuleCheck = errors.New("deploy: module check failed")

	// ErrModuleNotDeployed means the module has no matching management object
	// ErrModuleNotDeployed 表示模块没有匹配的管理对象
	ErrModuleNotDeployed = errors.New("deploy: module not deployed")
)

// ModuleResult is the health of one module
// ModuleResult 是单个模块的健康状态
type ModuleResult struct {
	Module  ModuleSpec
	Healthy bool
	// State is the observed State attribute, -1 when it was not read
	State int
	Err   error
}

func (r ModuleResult) String() string {
	if r.Healthy {
		return fmt.Sprintf("%s is started", r.Module.ID)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s is not started: %v", r.Module.ID, r.Err)
	}
	return fmt.Sprintf("%s is not started (state %d)", r.Module.ID, r.State)
}

// Checker checks module deployment state over a management connection
// Checker 通过管理连接检查模块部署状态
type Checker struct {
	probe *probe.Probe
}

// NewChecker creates a checker that connects the way the probe does
// NewChecker 创建与探测器使用相同连接方式的检查器
func NewChecker(p *probe.Probe) *Checker {
	return &Checker{probe: p}
}

// CheckModules checks every module and returns true only when all are healthy.
// Unsupported modules are unhealthy and never reach the endpoint. A connect
// failure marks every supported module unhealthy.
// CheckModules 检查所有模块，仅当全部健康时返回 true。
// 不支持的模块视为不健康且不会访问端点；连接失败时所有受支持的模块均不健康。
func (c *Checker) CheckModules(ctx context.Context, address string, port, timeoutSeconds int, modules []string) (bool, []ModuleResult) {
	ctx, span := otel_trace.Start(ctx, "deploy.CheckModules")
	defer span.End()
	span.SetAttributes(
		attribute.String("deploy.endpoint", fmt.Sprintf("%s:%d", address, port)),
		attribute.StringSlice("deploy.modules", modules),
	)

	specs := ParseModules(modules)
	results := make([]ModuleResult, len(specs))
	supported := 0
	for i, m := range specs {
		results[i] = ModuleResult{Module: m, State: -1}
		if !m.Supported() {
			results[i].Err = fmt.Errorf("%w: %q", ErrUnsupportedModuleKind, m.ID)
			continue
		}
		supported++
	}

	if supported > 0 {
		conn, _, err := c.probe.Connect(ctx, address, port, timeoutSeconds)
		if err != nil {
			logger.ErrorF(ctx, "[Deploy] cannot connect to %s:%d: %v", address, port, err)
			for i := range results {
				if results[i].Module.Supported() {
					results[i].Err = err
				}
			}
		} else {
			defer conn.Close()
			for i := range results {
				if results[i].Module.Supported() {
					results[i] = c.checkModule(ctx, conn, results[i].Module)
				}
			}
		}
	}

	healthy := len(results) > 0
	for _, r := range results {
		switch {
		case r.Healthy:
			logger.InfoF(ctx, "[Deploy] module %s", r)
		case errors.Is(r.Err, ErrUnsupportedModuleKind):
			logger.WarnF(ctx, "[Deploy] module %s is not an .ear, -ejb.jar or .war file, check the configuration", r.Module.ID)
		default:
			logger.WarnF(ctx, "[Deploy] module %s", r)
		}
		healthy = healthy && r.Healthy
	}

	span.SetAttributes(attribute.Bool("deploy.healthy", healthy))
	if !healthy {
		span.SetStatus(codes.Error, "one or more modules are not started")
	}
	return healthy, results
}

func (c *Checker) checkModule(ctx context.Context, conn jmx.Conn, m ModuleSpec) ModuleResult {
	ctx, span := otel_trace.Start(ctx, "deploy.CheckModule")
	defer span.End()
	span.SetAttributes(
		attribute.String("deploy.module", m.ID),
		attribute.String("deploy.kind", m.Kind.String()),
	)

	res := ModuleResult{Module: m, State: -1}
	state, err := readState(ctx, conn, m)
	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res
	}
	res.State = state
	res.Healthy = state == StateStarted
	span.SetAttributes(attribute.Int("deploy.state", state))
	return res
}

func readState(ctx context.Context, conn jmx.Conn, m ModuleSpec) (int, error) {
	objectName := m.ObjectName()
	if m.Kind == KindWAR {
		matches, err := conn.Query(ctx, objectName)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrModuleCheck, m.ID, err)
		}
		if len(matches) != 1 {
			return 0, fmt.Errorf("%w: %s matched %d objects for %s", ErrModuleNotDeployed, m.ID, len(matches), objectName)
		}
		objectName = matches[0]
	}

	state, err := jmx.ReadInt(ctx, conn, objectName, StateAttribute)
	if err != nil {
		var remote *jmx.RemoteError
		if errors.As(err, &remote) && remote.NotFound() {
			return 0, fmt.Errorf("%w: %s: %w", ErrModuleNotDeployed, m.ID, err)
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrModuleCheck, m.ID, err)
	}
	return state, nil
}
