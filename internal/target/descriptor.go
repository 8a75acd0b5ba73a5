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

// Package target describes the application server instances jbossctl can manage.
// target 包描述 jbossctl 可以管理的应用服务器实例。
//
// This package provides:
// 此包提供：
// - Local and remote target descriptors / 本地和远程目标描述符
// - Constructor-time invariant checks / 构造时的不变量校验
// - A copy-on-write registry of targets / 写时复制的目标注册表
package target

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the discriminant of a target descriptor
// Kind 是目标描述符的类型判别字段
type Kind string

const (
	// KindLocal is a server installed on this machine, driven through its bin scripts
	// KindLocal 表示安装在本机的服务器，通过 bin 目录脚本控制
	KindLocal Kind = "local"

	// KindRemote is a server driven through opaque start/stop commands
	// KindRemote 表示通过不透明的启动/停止命令控制的服务器
	KindRemote Kind = "remote"
)

// MinManagementPort is the lowest port a management endpoint may not use.
// MinManagementPort 是管理端口必须大于的值。
const MinManagementPort = 1024

// ParseKind converts a configuration string into a Kind
// ParseKind 将配置字符串转换为 Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLocal:
		return KindLocal, nil
	case KindRemote:
		return KindRemote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Descriptor identifies one manageable server instance. It is immutable once built;
// use NewLocal or NewRemote to obtain one.
// Descriptor 标识一个可管理的服务器实例，构造后不可变；请使用 NewLocal 或 NewRemote 创建。
type Descriptor struct {
	kind           Kind
	name           string
	address        string
	managementPort int
	timeoutSeconds int

	// local payload / 本地负载
	profile    string
	installDir string

	// remote payload / 远程负载
	startCommand string
	stopCommand  string
}

// Common holds the fields shared by every target kind
// Common 保存所有目标类型共有的字段
type Common struct {
	Name           string
	Address        string
	ManagementPort int
	TimeoutSeconds int
}

// LocalParams contains parameters for a local target
// LocalParams 包含本地目标的参数
type LocalParams struct {
	Common

	// Profile is the server configuration set passed with -c (defaults to Name)
	// Profile 是通过 -c 传入的服务器配置集（默认为 Name）
	Profile string

	// InstallDirectory is the server home containing bin/ and server/
	// InstallDirectory 是包含 bin/ 和 server/ 的服务器主目录
	InstallDirectory string
}

// RemoteParams contains parameters for a remote target
// RemoteParams 包含远程目标的参数
type RemoteParams struct {
	Common
	StartCommand string
	StopCommand  string
}

// NewLocal builds a local target descriptor
// NewLocal 构建本地目标描述符
func NewLocal(p LocalParams) (Descriptor, error) {
	if err := p.Common.validate(); err != nil {
		return Descriptor{}, err
	}
	dir := strings.TrimSpace(p.InstallDirectory)
	if dir == "" {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrInstallDirEmpty, p.Name)
	}
	profile := strings.TrimSpace(p.Profile)
	if profile == "" {
		profile = strings.TrimSpace(p.Name)
	}
	return Descriptor{
		kind:           KindLocal,
		name:           strings.TrimSpace(p.Name),
		address:        strings.TrimSpace(p.Address),
		managementPort: p.ManagementPort,
		timeoutSeconds: p.TimeoutSeconds,
		profile:        profile,
		installDir:     filepath.Clean(dir),
	}, nil
}

// NewRemote builds a remote target descriptor
// NewRemote 构建远程目标描述符
func NewRemote(p RemoteParams) (Descriptor, error) {
	if err := p.Common.validate(); err != nil {
		return Descriptor{}, err
	}
	start, stop := strings.TrimSpace(p.StartCommand), strings.TrimSpace(p.StopCommand)
	if start == "" || stop == "" {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrCommandEmpty, p.Name)
	}
	return Descriptor{
		kind:           KindRemote,
		name:           strings.TrimSpace(p.Name),
		address:        strings.TrimSpace(p.Address),
		managementPort: p.ManagementPort,
		timeoutSeconds: p.TimeoutSeconds,
		startCommand:   start,
		stopCommand:    stop,
	}, nil
}

func (c Common) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameEmpty
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: %s", ErrAddressEmpty, c.Name)
	}
	if c.ManagementPort <= MinManagementPort || c.ManagementPort > 65535 {
		return fmt.Errorf("%w: %s has port %d", ErrInvalidPort, c.Name, c.ManagementPort)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: %s has timeout %d", ErrInvalidTimeout, c.Name, c.TimeoutSeconds)
	}
	return nil
}

// Kind returns whether the target is local or remote
// Kind 返回目标是本地还是远程
func (d Descriptor) Kind() Kind { return d.kind }

// Name returns the target name, also used as the default profile
// Name 返回目标名称，同时作为默认配置名
func (d Descriptor) Name() string { return d.name }

// Address returns the host the server binds to and is reached at
// Address 返回服务器绑定及访问的主机地址
func (d Descriptor) Address() string { return d.address }

// ManagementPort returns the port of the management endpoint
// ManagementPort 返回管理端点的端口
func (d Descriptor) ManagementPort() int { return d.managementPort }

// TimeoutSeconds returns the per-target wait budget in seconds
// TimeoutSeconds 返回目标的等待时限（秒）
func (d Descriptor) TimeoutSeconds() int { return d.timeoutSeconds }

// Profile returns the server profile passed with -c (local targets only)
// Profile 返回通过 -c 传递的服务器配置（仅本地目标）
func (d Descriptor) Profile() string { return d.profile }

// InstallDirectory returns the server home (local targets only)
// InstallDirectory 返回服务器主目录（仅本地目标）
func (d Descriptor) InstallDirectory() string { return d.installDir }

// StartCommand returns the opaque start command (remote targets only)
// StartCommand 返回不透明的启动命令（仅远程目标）
func (d Descriptor) StartCommand() string { return d.startCommand }

// StopCommand returns the opaque stop command (remote targets only)
// StopCommand 返回不透明的停止命令（仅远程目标）
func (d Descriptor) StopCommand() string { return d.stopCommand }

// IsZero reports whether d was not built by a constructor
// IsZero 判断 d 是否未经构造函数创建
func (d Descriptor) IsZero() bool {
	return d.kind == ""
}

// IsLocal reports whether d is a local target
func (d Descriptor) IsLocal() bool {
	return d.kind == KindLocal
}

// Endpoint returns host:port of the management endpoint
// Endpoint 返回管理端点的 host:port
func (d Descriptor) Endpoint() string {
	return net.JoinHostPort(d.address, strconv.Itoa(d.managementPort))
}

// NamingURL returns the jnp:// URL the local shutdown script connects to
// NamingURL 返回本地关闭脚本连接的 jnp:// 地址
func (d Descriptor) NamingURL() string {
	return "jnp://" + d.Endpoint()
}

// String returns a short representation for logs
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s %s)", d.name, d.kind, d.Endpoint())
}

// ValidateInstallDirectory checks that dir looks like a server home: it must exist
// and contain the bin and server directories.
// ValidateInstallDirectory 检查 dir 是否为服务器主目录：必须存在且包含 bin 和 server 目录。
func ValidateInstallDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstallDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidInstallDir, dir)
	}
	for _, sub := range []string{"bin", "server"} {
		subInfo, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !subInfo.IsDir() {
			return fmt.Errorf("%w: %s has no %s directory", ErrInvalidInstallDir, dir, sub)
		}
	}
	return nil
}
