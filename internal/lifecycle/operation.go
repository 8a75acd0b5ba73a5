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
	"errors"
	"fmt"
	"strings"

	"github.com/jbossctl/jbossctl/internal/deploy"
	"github.com/jbossctl/jbossctl/internal/target"
)

// OperationType is the lifecycle operation to run on a target
// OperationType 是在目标上执行的生命周期操作
type OperationType string

const (
	OpStart        OperationType = "start"
	OpStartAndWait OperationType = "start-and-wait"
	OpShutdown     OperationType = "shutdown"
	OpCheckDeploy  OperationType = "check-deploy"
)

// OperationTypes lists the supported operations
var OperationTypes = []OperationType{OpStart, OpStartAndWait, OpShutdown, OpCheckDeploy}

var (
	// ErrConfiguration is the root of every configuration error. Nothing is
	// probed or launched when it is returned.
	// ErrConfiguration 是所有配置错误的根，返回该错误时不会进行任何探测或启动。
	ErrConfiguration = errors.New("lifecycle: configuration error")

	ErrUnknownTarget    = fmt.Errorf("%w: unknown target", ErrConfiguration)
	ErrUnknownOperation = fmt.Errorf("%w: unknown operation", ErrConfiguration)
	ErrNoModules        = fmt.Errorf("%w: no modules to check", ErrConfiguration)
)

// ParseOperationType accepts "start-and-wait" as well as "START_AND_WAIT"
// ParseOperationType 同时接受 "start-and-wait" 和 "START_AND_WAIT"
func ParseOperationType(s string) (OperationType, error) {
	normalized := OperationType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if normalized.Valid() {
		return normalized, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownOperation, s)
}

// Valid reports whether the operation is supported
func (o OperationType) Valid() bool {
	switch o {
	case OpStart, OpStartAndWait, OpShutdown, OpCheckDeploy:
		return true
	}
	return false
}

// OperationRequest describes one lifecycle operation. ExtraProperties applies
// to the start operations; Modules and StopOnCheckFailure apply to check-deploy.
// OperationRequest 描述一次生命周期操作。ExtraProperties 用于启动类操作；
// Modules 和 StopOnCheckFailure 用于 check-deploy。
type OperationRequest struct {
	Type               OperationType
	ExtraProperties    string
	Modules            []string
	StopOnCheckFailure bool
}

// resolve applies the entry guard
// resolve 执行入口校验
func resolve(snap *target.Snapshot, targetName string, req OperationRequest) (target.Descriptor, error) {
	if !req.Type.Valid() {
		return target.Descriptor{}, fmt.Errorf("%w %q", ErrUnknownOperation, req.Type)
	}
	t, ok := snap.Find(targetName)
	if !ok {
		return target.Descriptor{}, fmt.Errorf("%w %q", ErrUnknownTarget, targetName)
	}
	if req.Type == OpCheckDeploy && len(deploy.ParseModules(req.Modules)) == 0 {
		return target.Descriptor{}, ErrNoModules
	}
	return t, nil
}
