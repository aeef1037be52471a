package log

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCallerLocation(t *testing.T) {
	once.Do(func() {})
	core, logs := observer.New(zap.DebugLevel)
	use(zap.New(core, zap.AddCaller()).Sugar())

	Info("from helper")
	L().Infow("from base")
	With("request_id", "abc").Infow("from child")

	entries := logs.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.True(t, e.Caller.Defined, e.Message)
		assert.Equal(t, "log_test.go", filepath.Base(e.Caller.File), e.Message)
	}
	assert.Equal(t, "abc", entries[2].ContextMap()["request_id"])
}
