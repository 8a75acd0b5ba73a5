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

// Package process builds and runs the start and stop commands of a managed server.
// process 包构建并执行受管服务器的启动和停止命令。
//
// This package provides:
// 此包提供：
// - Script resolution for local targets / 本地目标的脚本解析
// - Opaque command execution for remote targets / 远程目标的不透明命令执行
// - -Dkey=value definitions from a property string / 从属性字符串生成 -Dkey=value 定义
// - Fire-and-forget start and blocking stop / 即发即忘的启动与阻塞的停止
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jbossctl/jbossctl/internal/target"
)

// Common errors for command execution
// 命令执行的常见错误
var (
	// ErrCommand matches every *CommandError through errors.Is
	// ErrCommand 通过 errors.Is 匹配所有 *CommandError
	ErrCommand = errors.New("process: command failed")

	// ErrInvalidProperties indicates the property string could not be tokenized
	// ErrInvalidProperties 表示属性字符串无法分词
	ErrInvalidProperties = errors.New("process: invalid properties")

	// ErrEmptyCommand indicates there is nothing to execute
	// ErrEmptyCommand 表示没有可执行的命令
	ErrEmptyCommand = errors.New("process: empty command")

	// ErrInvalidTarget indicates a descriptor that was not constructed
	// ErrInvalidTarget 表示未经构造的描述符
	ErrInvalidTarget = errors.New("process: invalid target")
)

// Action names the command being run
// Action 表示正在执行的命令
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// CommandError reports a spawn or IO failure. It is never retried.
// CommandError 报告进程创建或 IO 失败，不会重试。
type CommandError struct {
	Action Action
	Target string
	Args   []string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("process: %s %s failed: %v (command: %s)",
		e.Action, e.Target, e.Err, strings.Join(e.Args, " "))
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCommand) hold for any CommandError
func (e *CommandError) Is(target error) bool { return target == ErrCommand }

// Platform script names
// 各平台脚本名称
const (
	startScriptUnix    = "run.sh"
	startScriptWindows = "run.bat"
	stopScriptUnix     = "shutdown.sh"
	stopScriptWindows  = "shutdown.bat"
	posixShell         = "/bin/sh"
)

// Runner builds and executes start/stop commands for a target
// Runner 为目标构建并执行启动/停止命令
type Runner struct {
	launcher Launcher
	goos     string
}

// Option configures a Runner
type Option func(*Runner)

// WithPlatform overrides the operating system the commands are built for
// WithPlatform 覆盖命令所针对的操作系统
func WithPlatform(goos string) Option {
	return func(r *Runner) { r.goos = goos }
}

// NewRunner creates a Runner; a nil launcher uses ExecLauncher
// NewRunner 创建 Runner；launcher 为 nil 时使用 ExecLauncher
func NewRunner(launcher Launcher, opts ...Option) *Runner {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	r := &Runner{launcher: launcher, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) windows() bool {
	return r.goos == "windows"
}

// binDir returns <install>/bin
func binDir(t target.Descriptor) string {
	return filepath.Join(t.InstallDirectory(), "bin")
}

// getStartScript returns the path to the server start script
// getStartScript 返回服务器启动脚本的路径
func (r *Runner) getStartScript(t target.Descriptor) string {
	if r.windows() {
		return filepath.Join(binDir(t), startScriptWindows)
	}
	return filepath.Join(binDir(t), startScriptUnix)
}

// getStopScript returns the path to the server stop script
// getStopScript 返回服务器停止脚本的路径
func (r *Runner) getStopScript(t target.Descriptor) string {
	if r.windows() {
		return filepath.Join(binDir(t), stopScriptWindows)
	}
	return filepath.Join(binDir(t), stopScriptUnix)
}

// BuildStart returns the launch spec for starting t with the given properties
// BuildStart 返回使用给定属性启动 t 的启动规格
func (r *Runner) BuildStart(t target.Descriptor, properties string, env map[string]string) (LaunchSpec, error) {
	defs, err := ParseProperties(properties, env)
	if err != nil {
		return LaunchSpec{}, err
	}

	switch t.Kind() {
	case target.KindLocal:
		args := []string{r.getStartScript(t), "-c", t.Profile(), "-b", t.Address()}
		args = append(args, defs...)
		spec := r.wrapScript(args)
		spec.Dir = binDir(t)
		return spec, nil
	case target.KindRemote:
		return r.wrapShell(t.StartCommand(), defs), nil
	}
	return LaunchSpec{}, fmt.Errorf("%w: %q", ErrInvalidTarget, t.Name())
}

// BuildStop returns the launch spec for stopping t
// BuildStop 返回停止 t 的启动规格
func (r *Runner) BuildStop(t target.Descriptor) (LaunchSpec, error) {
	switch t.Kind() {
	case target.KindLocal:
		args := []string{r.getStopScript(t), "-s", t.NamingURL(), "-S"}
		spec := r.wrapScript(args)
		spec.Dir = binDir(t)
		spec.Wait = true
		return spec, nil
	case target.KindRemote:
		spec := r.wrapShell(t.StopCommand(), nil)
		spec.Wait = true
		return spec, nil
	}
	return LaunchSpec{}, fmt.Errorf("%w: %q", ErrInvalidTarget, t.Name())
}

// wrapScript runs a script path with its arguments through the platform shell
// wrapScript 通过平台 shell 执行脚本及其参数
func (r *Runner) wrapScript(args []string) LaunchSpec {
	if r.windows() {
		quoted := make([]string, len(args))
		for i, a := range args {
			quoted[i] = quoteWindowsArg(a)
		}
		return windowsShell(strings.Join(quoted, " "))
	}
	return LaunchSpec{Args: append([]string{posixShell}, args...)}
}

// wrapShell runs an opaque command line. On POSIX extra arguments become
// positional parameters; on Windows they are quoted onto the command.
// wrapShell 执行不透明的命令行；POSIX 下额外参数作为位置参数，Windows 下加引号后追加到命令末尾。
func (r *Runner) wrapShell(command string, extra []string) LaunchSpec {
	if r.windows() {
		line := command
		for _, a := range extra {
			line += " " + quoteWindowsArg(a)
		}
		return windowsShell(line)
	}
	if len(extra) == 0 {
		return LaunchSpec{Args: []string{posixShell, "-c", command}}
	}
	args := []string{posixShell, "-c", command + ` "$@"`, "jbossctl"}
	return LaunchSpec{Args: append(args, extra...)}
}

// windowsShell wraps a complete command as cmd /C "<command>"; cmd.exe strips
// only the outer pair of quotes.
// windowsShell 将完整命令包装为 cmd /C "<command>"，cmd.exe 只去掉最外层引号。
func windowsShell(command string) LaunchSpec {
	return LaunchSpec{
		Args:    []string{"cmd", "/C", command},
		CmdLine: `cmd /C "` + command + `"`,
	}
}

// quoteWindowsArg quotes one argument following the Windows argv rules: it is
// wrapped in quotes when it is empty or holds a space, tab or quote, and
// backslashes are doubled only where they precede a quote.
// quoteWindowsArg 按 Windows argv 规则为单个参数加引号。
func quoteWindowsArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

// Start launches the start command without waiting for the server to come up
// Start 启动服务器启动命令，不等待服务器就绪
func (r *Runner) Start(ctx context.Context, t target.Descriptor, properties string, env map[string]string, stderr io.Writer) error {
	spec, err := r.BuildStart(t, properties, env)
	if err != nil {
		return &CommandError{Action: ActionStart, Target: t.Name(), Err: err}
	}
	spec.Stderr = stderr
	if err := r.launcher.Launch(ctx, spec); err != nil {
		return &CommandError{Action: ActionStart, Target: t.Name(), Args: spec.Args, Err: err}
	}
	return nil
}

// Stop runs the stop command and waits for it to exit
// Stop 执行停止命令并等待其退出
func (r *Runner) Stop(ctx context.Context, t target.Descriptor, stderr io.Writer) error {
	spec, err := r.BuildStop(t)
	if err != nil {
		return &CommandError{Action: ActionStop, Target: t.Name(), Err: err}
	}
	spec.Stderr = stderr
	if err := r.launcher.Launch(ctx, spec); err != nil {
		return &CommandError{Action: ActionStop, Target: t.Name(), Args: spec.Args, Err: err}
	}
	return nil
}
