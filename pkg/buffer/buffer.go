package buffer

import (
	"errors"
	"sync"
)

var (
	// ErrInsufficientData 缓冲区中元素不足，无法摘取
	ErrInsufficientData = errors.New("buffer: insufficient data")
	// ErrInvalidSize 摘取数量必须为正数
	ErrInvalidSize = errors.New("buffer: size must be positive")
)

// Buffer 采集循环与批次摘取共享的有序缓冲区
// 所有操作在同一把互斥锁下串行执行，保证追加与摘取之间不会丢失或重复元素
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
}

// New 创建空缓冲区
func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Append 追加到尾部
func (b *Buffer[T]) Append(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, v)
}

// Len 当前长度
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// PeekLast 返回最后一个元素，缓冲区为空时 ok 为 false
func (b *Buffer[T]) PeekLast() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return v, false
	}
	return b.items[len(b.items)-1], true
}

// View 在一次加锁内同时读取最后一个元素与长度
func (b *Buffer[T]) View() (last T, ok bool, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = len(b.items)
	if n == 0 {
		return last, false, 0
	}
	return b.items[n-1], true, n
}

// DrainFront 原子地移除并返回前 n 个元素（保持原顺序）
// 元素不足时返回 ErrInsufficientData，缓冲区保持不变
func (b *Buffer[T]) DrainFront(n int) ([]T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked(n)
}

// ExtractBatch 在同一临界区内检查长度并摘取 n 个元素
// 长度不足时为空操作，返回 false
func (b *Buffer[T]) ExtractBatch(n int) ([]T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.items) < n {
		return nil, false
	}
	batch, err := b.drainLocked(n)
	if err != nil {
		return nil, false
	}
	return batch, true
}

func (b *Buffer[T]) drainLocked(n int) ([]T, error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	if len(b.items) < n {
		return nil, ErrInsufficientData
	}
	// 拷贝出独立切片，批次与缓冲区的底层数组彻底分离
	batch := make([]T, n)
	copy(batch, b.items[:n])

	rest := make([]T, len(b.items)-n)
	copy(rest, b.items[n:])
	b.items = rest
	return batch, nil
}
