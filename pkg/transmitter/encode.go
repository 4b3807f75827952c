package transmitter

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/perf-monitor/pkg/monitor"
)

// Encode 将批次编码为 JSON 数组
func Encode(batch monitor.Batch) ([]byte, error) {
	snapshots := batch.Snapshots
	if snapshots == nil {
		snapshots = []monitor.Snapshot{}
	}
	return json.Marshal(snapshots)
}

// Decode 接收端解码，供测试与调试工具使用
func Decode(payload []byte) ([]monitor.Snapshot, error) {
	var out []monitor.Snapshot
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Compress gzip 压缩
func Compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
