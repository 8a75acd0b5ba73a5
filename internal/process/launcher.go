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

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// LaunchSpec describes one OS process to spawn
// LaunchSpec 描述要创建的一个操作系统进程
type LaunchSpec struct {
	// Args is the full argument list; Args[0] is the executable
	// Args 是完整参数列表，Args[0] 为可执行文件
	Args []string

	// Dir is the working directory (empty keeps the caller's)
	// Dir 是工作目录（为空则沿用调用方的）
	Dir string

	// Stderr receives the child's standard error; stdout is discarded
	// Stderr 接收子进程的标准错误，标准输出被丢弃
	Stderr io.Writer

	// CmdLine, when set, is passed verbatim as the Windows command line
	// instead of the quoting derived from Args
	// CmdLine 非空时作为 Windows 命令行原样传递，替代由 Args 推导的转义
	CmdLine string

	// Wait blocks until the child exits when true
	// Wait 为 true 时阻塞直到子进程退出
	Wait bool
}

// Launcher is the process-launch boundary used by Runner
// Launcher 是 Runner 使用的进程启动边界
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) error
}

// ExitError reports a waited command that exited with a non-zero status
// ExitError 报告被等待的命令以非零状态退出
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExecLauncher spawns processes with os/exec
// ExecLauncher 使用 os/exec 创建进程
type ExecLauncher struct{}

// Launch starts spec. A fire-and-forget child runs in its own process group and is
// reaped in the background, so cancelling ctx never kills the server it started.
// Launch 启动 spec。即发即忘的子进程运行在独立进程组中并在后台回收，取消 ctx 不会杀死已启动的服务器。
func (ExecLauncher) Launch(ctx context.Context, spec LaunchSpec) error {
	if len(spec.Args) == 0 {
		return ErrEmptyCommand
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var cmd *exec.Cmd
	if spec.Wait {
		cmd = exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	} else {
		cmd = exec.Command(spec.Args[0], spec.Args[1:]...)
		setProcGroupAttr(cmd)
	}
	setCmdLine(cmd, spec.CmdLine)
	cmd.Dir = spec.Dir
	cmd.Stdout = nil
	cmd.Stderr = spec.Stderr

	if !spec.Wait {
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return err
	}
	return nil
}
