package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perf-monitor/cmd/server"
	"github.com/perf-monitor/pkg/collector"
	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/logger"
	"github.com/perf-monitor/pkg/registers"
	"github.com/perf-monitor/pkg/signal"
	"github.com/perf-monitor/pkg/util"
)

// shutdownTimeout 退出时等待 HTTP 服务关闭与在途批次的总时长
const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "perf-monitor",
	Short: "Host telemetry agent: samples CPU/memory/processes/network and ships gzip batches over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			os.Exit(1)
		}
		if err := runServer(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

// Execute 命令入口
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "configs/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().String("env-file", ".env", ".env 文件路径（不存在时忽略）")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initDeliveryFlags(rootCmd)
	initLogFlags(rootCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.SetDefaultComponent("perf-monitor")

	util.PrintBanner(os.Stdout, "perf-monitor", "cyan",
		fmt.Sprintf("reporting to %s every %s, batch size %d", cfg.Delivery.ServerURL, cfg.Monitor.Interval, cfg.Monitor.BatchSize))

	const enableProcess = true
	pipeline, err := registers.InitPipeline(cfg, enableProcess, collector.NewProbe(), nil, logger.Named("pipeline"), clockwork.NewRealClock())
	if err != nil {
		return fmt.Errorf("init pipeline failed: %w", err)
	}

	var httpServer *server.Server
	if cfg.Server.Enable {
		httpServer = server.NewHTTPServer(cfg.Server, logger.Named("http"), pipeline.Registry, pipeline.Collector, pipeline.Agent)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("start HTTP server failed: %w", err)
		}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := pipeline.Agent.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sampling loop exited", zap.Error(err))
		}
	}()

	return signal.WaitForShutdown(logger.GetLogger(), shutdownTimeout, func(shutdownCtx context.Context) error {
		// 关闭顺序：采样循环 → HTTP 服务 → 在途批次（尽力等待）
		stop()
		<-loopDone

		var errs []error
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown HTTP server failed: %w", err))
			}
		}
		if err := pipeline.Agent.Wait(shutdownCtx); err != nil {
			logger.Warn("abandoning in-flight batches", zap.Error(err), zap.Int("buffered", pipeline.Agent.Status().BufferSize))
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		logger.Info("all services shutdown successfully", zap.Uint64("total_sent", pipeline.Agent.Status().TotalSent))
		return nil
	})
}
