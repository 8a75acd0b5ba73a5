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

// Package jmxtest provides an in-process fake Jolokia endpoint for tests.
// jmxtest 包为测试提供进程内的伪 Jolokia 端点。
package jmxtest

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Server is a fake management endpoint backed by gin and httptest
// Server 是基于 gin 和 httptest 的伪管理端点
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	attributes map[string]map[string]func() any
	down       bool
	versions   int
	reads      map[string]int
	searches   int
}

// NewServer starts a fake endpoint; call Close when done
// NewServer 启动伪端点，使用完毕后调用 Close
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		attributes: make(map[string]map[string]func() any),
		reads:      make(map[string]int),
	}
	router := gin.New()
	router.POST("/jolokia/", s.handle)
	s.srv = httptest.NewServer(router)
	return s
}

// Close shuts the endpoint down
func (s *Server) Close() {
	s.srv.Close()
}

// Address returns the host of the endpoint
func (s *Server) Address() string {
	host, _ := s.hostPort()
	return host
}

// Port returns the TCP port of the endpoint
func (s *Server) Port() int {
	_, port := s.hostPort()
	return port
}

// Client returns an HTTP client for the endpoint
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

func (s *Server) hostPort() (string, int) {
	u, err := url.Parse(s.srv.URL)
	if err != nil {
		return "", 0
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// SetAttribute registers a static attribute value
// SetAttribute 注册一个静态属性值
func (s *Server) SetAttribute(mbean, attribute string, value any) {
	s.SetAttributeFunc(mbean, attribute, func() any { return value })
}

// SetAttributeFunc registers a computed attribute value
// SetAttributeFunc 注册一个动态计算的属性值
func (s *Server) SetAttributeFunc(mbean, attribute string, fn func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.attributes[mbean]
	if !ok {
		attrs = make(map[string]func() any)
		s.attributes[mbean] = attrs
	}
	attrs[attribute] = fn
}

// RegisterMBean makes an MBean visible to searches without attributes
func (s *Server) RegisterMBean(mbean string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attributes[mbean]; !ok {
		s.attributes[mbean] = make(map[string]func() any)
	}
}

// SetDown makes every request fail with 503 while true
// SetDown 为 true 时所有请求返回 503
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Versions returns how many version (dial) requests were served
func (s *Server) Versions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions
}

// Reads returns how many reads hit mbean
func (s *Server) Reads(mbean string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[mbean]
}

// Searches returns how many search requests were served
func (s *Server) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

type request struct {
	Type      string `json:"type"`
	MBean     string `json:"mbean"`
	Attribute string `json:"attribute"`
}

func (s *Server) handle(c *gin.Context) {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": 400, "error_type": "java.lang.IllegalArgumentException", "error": err.Error()})
		return
	}

	switch req.Type {
	case "version":
		s.mu.Lock()
		s.versions++
		s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"status": 200, "value": gin.H{"agent": "1.7.2", "protocol": "7.2"}})
	case "read":
		s.read(c, req)
	case "search":
		s.search(c, req)
	default:
		c.JSON(http.StatusOK, gin.H{"status": 400, "error_type": "java.lang.IllegalArgumentException", "error": "unsupported type " + req.Type})
	}
}

func (s *Server) read(c *gin.Context, req request) {
	s.mu.Lock()
	s.reads[req.MBean]++
	attrs, ok := s.attributes[req.MBean]
	var fn func() any
	if ok {
		fn = attrs[req.Attribute]
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"status":     404,
			"error_type": "javax.management.InstanceNotFoundException",
			"error":      "javax.management.InstanceNotFoundException : " + req.MBean,
		})
		return
	}
	if fn == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":     404,
			"error_type": "javax.management.AttributeNotFoundException",
			"error":      "No such attribute: " + req.Attribute,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": 200, "value": fn()})
}

func (s *Server) search(c *gin.Context, req request) {
	s.mu.Lock()
	s.searches++
	names := make([]string, 0)
	for name := range s.attributes {
		if Match(req.MBean, name) {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"status": 200, "value": names})
}

// Match reports whether an object name matches a JMX pattern. It supports the
// ",*" property-list wildcard and glob characters in domain and values.
// Match 判断对象名是否匹配 JMX 模式，支持 ",*" 属性列表通配符以及域名和值中的通配符。
func Match(pattern, name string) bool {
	pDomain, pProps, ok := strings.Cut(pattern, ":")
	if !ok {
		return false
	}
	nDomain, nProps, ok := strings.Cut(name, ":")
	if !ok {
		return false
	}
	if matched, _ := path.Match(pDomain, nDomain); !matched {
		return false
	}

	wantProps, open := parseProps(pProps)
	gotProps, _ := parseProps(nProps)
	if !open && len(wantProps) != len(gotProps) {
		return false
	}
	for k, want := range wantProps {
		got, ok := gotProps[k]
		if !ok {
			return false
		}
		if matched, _ := path.Match(want, got); !matched {
			return false
		}
	}
	return true
}

func parseProps(s string) (map[string]string, bool) {
	props := make(map[string]string)
	open := false
	for _, part := range strings.Split(s, ",") {
		if part == "*" {
			open = true
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		props[k] = v
	}
	return props, open
}
