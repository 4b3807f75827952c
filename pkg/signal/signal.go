package signal

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc 收到退出信号后执行的清理逻辑，需在 ctx 到期前返回
type ShutdownFunc func(ctx context.Context) error

// WaitForShutdown 阻塞监听退出信号（SIGINT/SIGTERM），随后在 timeout 内执行 shutdown
func WaitForShutdown(logger *zap.Logger, timeout time.Duration, shutdown ShutdownFunc) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("service running, waiting for SIGINT/SIGTERM...")
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	return runShutdown(logger, timeout, shutdown)
}

// runShutdown 超时后不再等待 shutdown 返回
func runShutdown(logger *zap.Logger, timeout time.Duration, shutdown ShutdownFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- shutdown(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("shutdown completed")
		return nil
	case <-ctx.Done():
		logger.Warn("shutdown timeout exceeded", zap.Duration("timeout", timeout))
		return errors.Join(errors.New("shutdown timed out"), ctx.Err())
	}
}
