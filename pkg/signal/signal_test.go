package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunShutdownCompletes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	called := false
	err := runShutdown(zap.New(core), time.Second, func(ctx context.Context) error {
		called = true
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("shutdown completed").Len())
}

func TestRunShutdownReturnsError(t *testing.T) {
	boom := errors.New("http close failed")
	err := runShutdown(zap.NewNop(), time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunShutdownTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := runShutdown(zap.NewNop(), 20*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
