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

// Package main is the entry point of the jbossctl command line tool.
// main 包是 jbossctl 命令行工具的入口点。
//
// jbossctl drives the lifecycle of JBoss application servers from a build step:
// jbossctl 在构建步骤中驱动 JBoss 应用服务器的生命周期：
// - start / start-and-wait: start a server unless it already runs / 启动未运行的服务器
// - shutdown: stop a running server / 停止运行中的服务器
// - check-deploy: verify deployed EAR, EJB and WAR modules / 校验已部署的 EAR、EJB 和 WAR 模块
//
// The exit status is 1 whenever an operation reports failure.
// 操作失败时退出码为 1。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jbossctl/jbossctl/internal/config"
	"github.com/jbossctl/jbossctl/internal/events"
	"github.com/jbossctl/jbossctl/internal/jmx"
	"github.com/jbossctl/jbossctl/internal/lifecycle"
	"github.com/jbossctl/jbossctl/internal/logger"
	"github.com/jbossctl/jbossctl/internal/metrics"
	"github.com/jbossctl/jbossctl/internal/otel_trace"
	"github.com/jbossctl/jbossctl/internal/probe"
	"github.com/jbossctl/jbossctl/internal/process"
	"github.com/jbossctl/jbossctl/internal/target"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// errOperationFailed is returned when an operation reports false
var errOperationFailed = errors.New("operation failed")

// App wires the orchestrator to its configuration and exporters
// App 将编排器与配置和导出器组装在一起
type App struct {
	// config holds the loaded configuration
	// config 保存已加载的配置
	config *config.Config

	registry     *target.Registry
	orchestrator *lifecycle.Orchestrator

	// metrics is exported on Close when a Pushgateway or textfile is configured
	// metrics 在 Close 时导出（如果配置了 Pushgateway 或文本文件）
	metrics *metrics.Metrics

	publisher *events.Publisher
	reporter  *events.Reporter
}

// NewApp initializes logging, tracing, metrics and events, and builds the orchestrator
// NewApp 初始化日志、追踪、指标和事件，并构建编排器
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	if err := otel_trace.Init(ctx, cfg.Telemetry); err != nil {
		logger.WarnF(ctx, "[App] tracing disabled: %v", err)
	}

	targets, err := cfg.Targets()
	if err != nil {
		return nil, fmt.Errorf("invalid servers: %w", err)
	}
	registry, err := target.NewRegistry(targets...)
	if err != nil {
		return nil, err
	}

	dialer := jmx.NewJolokiaDialer(jmx.JolokiaConfig{
		Scheme:         cfg.Management.Scheme,
		Path:           cfg.Management.Path,
		Username:       cfg.Management.Username,
		Password:       cfg.Management.Password,
		RequestTimeout: cfg.Management.RequestTimeout,
	})

	app := &App{
		config:   cfg,
		registry: registry,
		metrics:  metrics.New(),
	}
	opts := []lifecycle.Option{
		lifecycle.WithEnv(environ()),
		lifecycle.WithPreCheckTimeout(cfg.Probe.PreCheckTimeout),
		lifecycle.WithMetrics(app.metrics),
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			// Events never affect the result / 事件不影响操作结果
			logger.WarnF(ctx, "[App] lifecycle events disabled: %v", err)
		} else {
			app.publisher = publisher
			app.reporter = startReporter(publisher.Publish, cfg.Events)
			opts = append(opts, lifecycle.WithEvents(app.reporter))
		}
	}

	app.orchestrator = lifecycle.New(registry, probe.New(dialer, cfg.Probe.Interval), process.NewRunner(nil), opts...)
	return app, nil
}

// startReporter creates the event reporter and starts its background flush;
// App.Close stops it with a final flush
// startReporter 创建事件上报器并启动后台刷新，App.Close 负责停止并做最后一次刷新
func startReporter(report events.ReportFunc, cfg config.EventsConfig) *events.Reporter {
	r := events.NewReporter(report, cfg.BatchSize)
	r.Start(cfg.FlushInterval)
	return r
}

// Run executes one operation and writes the transcript to out
// Run 执行一次操作并将过程输出写入 out
func (a *App) Run(ctx context.Context, server string, req lifecycle.OperationRequest, out io.Writer) bool {
	return a.orchestrator.Execute(ctx, server, req, out)
}

// Close flushes events, exports metrics and shuts down tracing. Failures are logged.
// Close 刷新事件、导出指标并关闭追踪，失败只记录日志。
func (a *App) Close(ctx context.Context, server string) {
	if a.reporter != nil {
		a.reporter.Close(ctx)
	}
	if a.publisher != nil {
		a.publisher.Close()
	}

	if url := a.config.Metrics.PushgatewayURL; url != "" {
		if err := a.metrics.Push(ctx, url, a.config.Metrics.Job, map[string]string{metrics.GroupingKey: server}); err != nil {
			logger.WarnF(ctx, "[App] %v", err)
		}
	}
	if path := a.config.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			logger.WarnF(ctx, "[App] %v", err)
		}
	}

	otel_trace.Shutdown(ctx)
	logger.Sync()
}

// environ returns the process environment as a map
// environ 以 map 形式返回进程环境变量
func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// operationFlags holds the flags shared by the operation commands
type operationFlags struct {
	server        string
	properties    string
	modules       []string
	stopOnFailure bool
}

func (f *operationFlags) request(op lifecycle.OperationType) lifecycle.OperationRequest {
	return lifecycle.OperationRequest{
		Type:               op,
		ExtraProperties:    f.properties,
		Modules:            f.modules,
		StopOnCheckFailure: f.stopOnFailure,
	}
}

// newOperationCmd builds the command for one lifecycle operation
// newOperationCmd 为一个生命周期操作构建命令
func newOperationCmd(op lifecycle.OperationType, short string) *cobra.Command {
	flags := &operationFlags{}
	cmd := &cobra.Command{
		Use:   string(op),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runOperation(cmd.Context(), cfg, flags.server, flags.request(op), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&flags.server, "server", "s", "", "name of the configured server")
	_ = cmd.MarkFlagRequired("server")

	switch op {
	case lifecycle.OpStart, lifecycle.OpStartAndWait:
		cmd.Flags().StringVarP(&flags.properties, "properties", "p", "", "extra system properties, e.g. \"jboss.bind=0.0.0.0 env=${STAGE}\"")
	case lifecycle.OpCheckDeploy:
		cmd.Flags().StringSliceVarP(&flags.modules, "modules", "m", nil, "modules to check (.ear, -ejb.jar, .war)")
		cmd.Flags().BoolVar(&flags.stopOnFailure, "stop-on-failure", false, "stop the server when a module is not started")
	}
	return cmd
}

// runOperation runs one operation until it finishes or a signal arrives
// runOperation 执行一次操作，直到完成或收到信号
func runOperation(ctx context.Context, cfg *config.Config, server string, req lifecycle.OperationRequest, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	ok := app.Run(ctx, server, req, out)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Close(closeCtx, server)

	if !ok {
		return errOperationFailed
	}
	return nil
}

func newServersCmd() *cobra.Command {
	var output string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured servers / 列出已配置的服务器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printServers(cmd.OutOrStdout(), cfg, output)
		},
	}
	listCmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")

	serversCmd := &cobra.Command{
		Use:   "servers",
		Short: "Inspect configured servers / 查看已配置的服务器",
	}
	serversCmd.AddCommand(listCmd)
	return serversCmd
}

// printServers writes the configured servers as a table or YAML
// printServers 以表格或 YAML 形式输出已配置的服务器
func printServers(w io.Writer, cfg *config.Config, output string) error {
	switch output {
	case "yaml":
		data, err := yaml.Marshal(cfg.Servers)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "table", "":
		targets, err := cfg.Targets()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tENDPOINT\tTIMEOUT\tCOMMAND")
		for _, t := range targets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\t%s\n", t.Name(), t.Kind(), t.Endpoint(), t.TimeoutSeconds(), commandOf(t))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (must be table or yaml)", output)
	}
}

func commandOf(t target.Descriptor) string {
	if t.IsLocal() {
		return t.InstallDirectory() + " (" + t.Profile() + ")"
	}
	return t.StartCommand()
}

func newConfigCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration / 校验配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", cfg)
			return nil
		},
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration / 打印生效的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			data, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration / 查看配置",
	}
	configCmd.AddCommand(validateCmd, showCmd)
	return configCmd
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "jbossctl\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// rootCmd is the root command of the CLI
// rootCmd 是 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "jbossctl",
	Short: "jbossctl - JBoss application server lifecycle control",
	Long: `jbossctl starts, stops and checks JBoss application servers from build pipelines.
jbossctl 在构建流水线中启动、停止和检查 JBoss 应用服务器。

Servers are declared in the configuration file and addressed by name.
服务器在配置文件中声明，并通过名称引用。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(
		newOperationCmd(lifecycle.OpStart, "Start a server unless it is already running / 启动服务器"),
		newOperationCmd(lifecycle.OpStartAndWait, "Start a server and wait until it is running / 启动服务器并等待就绪"),
		newOperationCmd(lifecycle.OpShutdown, "Stop a running server / 停止服务器"),
		newOperationCmd(lifecycle.OpCheckDeploy, "Check that modules are deployed and started / 检查模块部署状态"),
		newServersCmd(),
		newConfigCmd(),
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
