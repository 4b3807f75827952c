package buffer_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-monitor/pkg/buffer"
)

func fill(b *buffer.Buffer[int], n int) {
	for i := 1; i <= n; i++ {
		b.Append(i)
	}
}

func TestAppendLenPeekLast(t *testing.T) {
	b := buffer.New[int]()

	_, ok := b.PeekLast()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())

	for _, n := range []int{1, 5, 42} {
		b := buffer.New[int]()
		fill(b, n)
		last, ok := b.PeekLast()
		require.True(t, ok)
		assert.Equal(t, n, b.Len())
		assert.Equal(t, n, last)
	}
}

func TestView(t *testing.T) {
	b := buffer.New[int]()
	_, ok, n := b.View()
	assert.False(t, ok)
	assert.Zero(t, n)

	fill(b, 4)
	last, ok, n := b.View()
	assert.True(t, ok)
	assert.Equal(t, 4, last)
	assert.Equal(t, 4, n)
}

func TestDrainFrontInsufficient(t *testing.T) {
	b := buffer.New[int]()
	fill(b, 2)

	got, err := b.DrainFront(3)
	assert.ErrorIs(t, err, buffer.ErrInsufficientData)
	assert.Nil(t, got)
	assert.Equal(t, 2, b.Len())

	last, _ := b.PeekLast()
	assert.Equal(t, 2, last)
}

func TestDrainFrontInvalidSize(t *testing.T) {
	b := buffer.New[int]()
	fill(b, 2)

	_, err := b.DrainFront(0)
	assert.ErrorIs(t, err, buffer.ErrInvalidSize)
	assert.Equal(t, 2, b.Len())
}

func TestDrainFrontKeepsOrder(t *testing.T) {
	tests := []struct {
		size, drain int
		want, rest  []int
	}{
		{size: 3, drain: 3, want: []int{1, 2, 3}, rest: []int{}},
		{size: 5, drain: 2, want: []int{1, 2}, rest: []int{3, 4, 5}},
		{size: 7, drain: 1, want: []int{1}, rest: []int{2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		b := buffer.New[int]()
		fill(b, tt.size)

		got, err := b.DrainFront(tt.drain)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)

		rest, err := b.DrainFront(b.Len())
		if len(tt.rest) == 0 {
			assert.ErrorIs(t, err, buffer.ErrInvalidSize)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.rest, rest)
	}
}

func TestDrainedBatchIsDetached(t *testing.T) {
	b := buffer.New[int]()
	fill(b, 4)

	batch, err := b.DrainFront(2)
	require.NoError(t, err)

	batch[0] = 100
	b.Append(5)

	rest, err := b.DrainFront(3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, rest)
	assert.Equal(t, []int{100, 2}, batch)
}

func TestExtractBatch(t *testing.T) {
	b := buffer.New[int]()
	fill(b, 2)

	_, ok := b.ExtractBatch(3)
	assert.False(t, ok)
	assert.Equal(t, 2, b.Len())

	b.Append(3)
	b.Append(4)
	batch, ok := b.ExtractBatch(3)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, batch)
	assert.Equal(t, 1, b.Len())

	_, ok = b.ExtractBatch(0)
	assert.False(t, ok)
}

func TestConcurrentAppendAndExtract(t *testing.T) {
	const (
		writers   = 8
		perWriter = 500
		batchSize = 7
	)
	b := buffer.New[int]()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		extracted int
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Append(i)
				if batch, ok := b.ExtractBatch(batchSize); ok {
					mu.Lock()
					extracted += len(batch)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, extracted+b.Len())
	assert.Less(t, b.Len(), batchSize)
}

func TestSentCounterConcurrentAdd(t *testing.T) {
	c := buffer.NewSentCounter()

	var (
		wg   sync.WaitGroup
		want uint64
	)
	for i := 1; i <= 200; i++ {
		want += uint64(i)
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			c.Add(v)
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, want, c.Value())
}
