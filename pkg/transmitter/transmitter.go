// Package transmitter 负责单个批次的投递：编码 → 压缩（可选）→ HTTP POST → 成功后累加计数。
// 投递只尝试一次，失败的批次直接丢弃，不重试、不回填缓冲区。
package transmitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/metrics"
	"github.com/perf-monitor/pkg/monitor"
)

const (
	StageEncode    = "encode"
	StageCompress  = "compress"
	StageTransport = "transport"
	StageStatus    = "status"
)

// maxErrorBody 失败响应中用于日志的最大字节数
const maxErrorBody = 512

// DeliveryError 投递失败，StatusCode 仅在远端返回非 2xx 时非零
type DeliveryError struct {
	Stage      string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Stage == StageStatus {
		return fmt.Sprintf("deliver batch: unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("deliver batch: %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Counter 成功投递后累加的计数器
type Counter interface {
	Add(n uint64)
}

// Transmitter 批次投递器，可被多个投递 goroutine 并发使用
type Transmitter struct {
	cfg     config.DeliveryConfig
	client  *http.Client
	counter Counter
	metrics *metrics.DeliveryMetrics
	logger  *zap.Logger
}

// New 创建投递器，client 为空时使用带超时的默认客户端
func New(cfg config.DeliveryConfig, client *http.Client, counter Counter, m *metrics.DeliveryMetrics, logger *zap.Logger) *Transmitter {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Transmitter{
		cfg:     cfg,
		client:  client,
		counter: counter,
		metrics: m,
		logger:  logger,
	}
}

// Deliver 投递一个批次，每次调用恰好发起一次 HTTP 请求（编码/压缩失败时不发起）
func (t *Transmitter) Deliver(ctx context.Context, batch monitor.Batch) error {
	log := t.logger.With(zap.String("batch_id", batch.ID), zap.Int("size", batch.Len()))

	payload, err := Encode(batch)
	if err != nil {
		return t.fail(log, metrics.OutcomeEncode, &DeliveryError{Stage: StageEncode, Err: err})
	}
	rawSize := len(payload)
	t.metrics.PayloadBytes.WithLabelValues("raw").Observe(float64(rawSize))

	if t.cfg.Compress {
		payload, err = Compress(payload)
		if err != nil {
			return t.fail(log, metrics.OutcomeCompress, &DeliveryError{Stage: StageCompress, Err: err})
		}
		t.metrics.PayloadBytes.WithLabelValues("compressed").Observe(float64(len(payload)))
	}
	log.Debug("payload prepared", zap.Int("raw_bytes", rawSize), zap.Int("wire_bytes", len(payload)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.ServerURL, bytes.NewReader(payload))
	if err != nil {
		return t.fail(log, metrics.OutcomeTransport, &DeliveryError{Stage: StageTransport, Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if t.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}
	if batch.ID != "" {
		req.Header.Set("X-Batch-Id", batch.ID)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	t.metrics.Duration.Observe(time.Since(start).Seconds())
	if err != nil {
		return t.fail(log, metrics.OutcomeTransport, &DeliveryError{Stage: StageTransport, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return t.fail(log, metrics.OutcomeStatus, &DeliveryError{
			Stage:      StageStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		})
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n := uint64(batch.Len())
	t.counter.Add(n)
	t.metrics.SnapshotsSent.Add(float64(n))
	t.metrics.Deliveries.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info("batch delivered", zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))
	return nil
}

func (t *Transmitter) fail(log *zap.Logger, outcome string, err *DeliveryError) error {
	t.metrics.Deliveries.WithLabelValues(outcome).Inc()
	fields := []zap.Field{zap.String("stage", err.Stage), zap.Error(err.Err)}
	if err.StatusCode != 0 {
		fields = append(fields, zap.Int("status", err.StatusCode))
	}
	log.Error("batch delivery failed", fields...)
	return err
}
