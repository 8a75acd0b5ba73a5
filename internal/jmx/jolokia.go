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

package jmx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Default Jolokia settings
// 默认 Jolokia 设置
const (
	DefaultScheme         = "http"
	DefaultPath           = "/jolokia/"
	DefaultRequestTimeout = 5 * time.Second
	maxResponseBytes      = 4 << 20
)

// JolokiaConfig configures the JMX-over-HTTP client
// JolokiaConfig 配置 JMX-over-HTTP 客户端
type JolokiaConfig struct {
	// Scheme is http or https
	Scheme string

	// Path is the agent context path, /jolokia/ by default
	// Path 是代理的上下文路径，默认为 /jolokia/
	Path string

	// Username and Password enable basic authentication when set
	// Username 和 Password 设置后启用基本认证
	Username string
	Password string

	// RequestTimeout bounds a single HTTP exchange
	// RequestTimeout 限制单次 HTTP 交互的时间
	RequestTimeout time.Duration

	// Transport overrides the base round tripper (tests)
	Transport http.RoundTripper
}

// JolokiaDialer connects to servers exposing a Jolokia agent
// JolokiaDialer 连接暴露 Jolokia 代理的服务器
type JolokiaDialer struct {
	cfg    JolokiaConfig
	client *http.Client
}

// NewJolokiaDialer creates a dialer; zero fields take defaults
// NewJolokiaDialer 创建拨号器，零值字段使用默认值
func NewJolokiaDialer(cfg JolokiaConfig) *JolokiaDialer {
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		cfg.Path = "/" + cfg.Path
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &JolokiaDialer{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// Dial checks the endpoint with a version request and returns a connection
// Dial 通过 version 请求检查端点并返回连接
func (d *JolokiaDialer) Dial(ctx context.Context, address string, port int) (Conn, error) {
	c := &jolokiaConn{
		client: d.client,
		cfg:    d.cfg,
		url:    fmt.Sprintf("%s://%s%s", d.cfg.Scheme, net.JoinHostPort(address, strconv.Itoa(port)), d.cfg.Path),
	}
	if _, err := c.do(ctx, jolokiaRequest{Type: "version"}); err != nil {
		if errors.Is(err, ErrConnection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return c, nil
}

type jolokiaRequest struct {
	Type      string `json:"type"`
	MBean     string `json:"mbean,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

type jolokiaResponse struct {
	Status    int             `json:"status"`
	Value     json.RawMessage `json:"value"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
}

type jolokiaConn struct {
	client *http.Client
	cfg    JolokiaConfig
	url    string
	closed atomic.Bool
}

func (c *jolokiaConn) ReadAttribute(ctx context.Context, objectName, attribute string) (any, error) {
	raw, err := c.do(ctx, jolokiaRequest{Type: "read", MBean: objectName, Attribute: attribute})
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("jmx: decode %s.%s: %w", objectName, attribute, err)
	}
	return v, nil
}

func (c *jolokiaConn) Query(ctx context.Context, pattern string) ([]string, error) {
	raw, err := c.do(ctx, jolokiaRequest{Type: "search", MBean: pattern})
	if err != nil {
		return nil, err
	}
	var names []string
	if len(raw) == 0 || string(raw) == "null" {
		return names, nil
	}
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("jmx: decode search %s: %w", pattern, err)
	}
	return names, nil
}

func (c *jolokiaConn) Close() error {
	c.closed.Store(true)
	return nil
}

// do performs one Jolokia request and returns the raw value
// do 执行一次 Jolokia 请求并返回原始值
func (c *jolokiaConn) do(ctx context.Context, req jolokiaRequest) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Username != "" {
		httpReq.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var out jolokiaResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("jmx: decode response: %w", err)
	}
	if out.Status != http.StatusOK {
		return nil, &RemoteError{Status: out.Status, ErrorType: out.ErrorType, Message: out.Error}
	}
	return out.Value, nil
}
