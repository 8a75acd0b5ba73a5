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

package config

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// **Feature: target-configuration, Property 1: Server order preservation**
// For any list of valid server entries, Targets returns one descriptor per entry in
// the configured order.
// 对于任何有效的服务器条目列表，Targets 按配置顺序为每个条目返回一个描述符。
func TestProperty_TargetsPreserveOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "n")
		var sb strings.Builder
		sb.WriteString("servers:\n")
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("%s-%d", rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "name"), i)
			port := rapid.IntRange(1025, 65535).Draw(t, "port")
			timeout := rapid.IntRange(1, 600).Draw(t, "timeout")
			names = append(names, name)
			if rapid.Bool().Draw(t, "remote") {
				fmt.Fprintf(&sb, "  - {name: %s, kind: remote, address: host%d, management_port: %d, timeout_seconds: %d, start_command: start.sh, stop_command: stop.sh}\n",
					name, i, port, timeout)
			} else {
				fmt.Fprintf(&sb, "  - {name: %s, address: host%d, management_port: %d, timeout_seconds: %d, install_dir: /opt/jboss}\n",
					name, i, port, timeout)
			}
		}

		cfg, err := LoadFromYAML([]byte(sb.String()))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		targets, err := cfg.Targets()
		if err != nil {
			t.Fatalf("targets: %v", err)
		}
		if len(targets) != n {
			t.Fatalf("got %d targets, want %d", len(targets), n)
		}
		for i, d := range targets {
			if d.Name() != names[i] {
				t.Fatalf("target %d: got %s, want %s", i, d.Name(), names[i])
			}
		}
	})
}

// **Feature: target-configuration, Property 2: Port lower bound**
// For any port at or below 1024, the server entry is rejected.
// 对于任何小于等于 1024 的端口，服务器条目都会被拒绝。
func TestProperty_RejectsLowPorts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(-10, 1024).Draw(t, "port")
		s := ServerConfig{Name: "a", Address: "h", ManagementPort: port, TimeoutSeconds: 10, InstallDir: "/opt/jboss"}
		if _, err := s.Descriptor(); err == nil {
			t.Fatalf("port %d accepted", port)
		}
	})
}
