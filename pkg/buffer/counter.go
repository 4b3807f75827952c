package buffer

import "sync"

// SentCounter 累计已成功投递的快照数量，只增不减
type SentCounter struct {
	mu    sync.Mutex
	total uint64
}

// NewSentCounter 创建计数器
func NewSentCounter() *SentCounter {
	return &SentCounter{}
}

// Add 增加 n
func (c *SentCounter) Add(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += n
}

// Value 读取当前累计值
func (c *SentCounter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
