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

// Package jmx is the management query boundary: it reads MBean attributes and
// searches object names on a server's management endpoint.
// jmx 包是管理查询边界：读取服务器管理端点上的 MBean 属性并搜索对象名。
package jmx

import (
	"context"
	"errors"
	"fmt"
)

// Error definitions for management queries.
var (
	// ErrConnection indicates the management endpoint could not be reached.
	ErrConnection = errors.New("jmx: management endpoint unreachable")
	// ErrAttributeType indicates an attribute value has an unexpected type.
	ErrAttributeType = errors.New("jmx: unexpected attribute type")
	// ErrClosed indicates the connection was already closed.
	ErrClosed = errors.New("jmx: connection closed")
)

// Conn is a handle on one management endpoint
// Conn 是一个管理端点的句柄
type Conn interface {
	// ReadAttribute reads one attribute of the named MBean
	// ReadAttribute 读取指定 MBean 的一个属性
	ReadAttribute(ctx context.Context, objectName, attribute string) (any, error)

	// Query returns the object names matching pattern (zero or more)
	// Query 返回匹配 pattern 的对象名（零个或多个）
	Query(ctx context.Context, pattern string) ([]string, error)

	// Close releases the handle
	Close() error
}

// Dialer opens connections to a management endpoint
// Dialer 打开到管理端点的连接
type Dialer interface {
	Dial(ctx context.Context, address string, port int) (Conn, error)
}

// RemoteError is a failure reported by the endpoint itself, e.g. an unknown MBean
// RemoteError 是端点自身报告的失败，例如 MBean 不存在
type RemoteError struct {
	Status    int
	ErrorType string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("jmx: remote error %d (%s): %s", e.Status, e.ErrorType, e.Message)
	}
	return fmt.Sprintf("jmx: remote error %d: %s", e.Status, e.Message)
}

// NotFound reports whether the endpoint said the MBean does not exist
func (e *RemoteError) NotFound() bool {
	return e.Status == 404
}

// ReadBool reads a boolean attribute
// ReadBool 读取布尔属性
func ReadBool(ctx context.Context, c Conn, objectName, attribute string) (bool, error) {
	v, err := c.ReadAttribute(ctx, objectName, attribute)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s.%s is %T", ErrAttributeType, objectName, attribute, v)
}

// ReadInt reads an integer attribute. JSON numbers arrive as float64.
// ReadInt 读取整数属性，JSON 数字以 float64 形式到达。
func ReadInt(ctx context.Context, c Conn, objectName, attribute string) (int, error) {
	v, err := c.ReadAttribute(ctx, objectName, attribute)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %s.%s is %T", ErrAttributeType, objectName, attribute, v)
}
