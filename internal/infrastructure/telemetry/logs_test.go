package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func TestNewZapOTELCore_NilProvider(t *testing.T) {
	core := NewZapOTELCore(nil, "ledger", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_ForwardsAtOrAboveLevel(t *testing.T) {
	exporter := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	log := zap.New(NewZapOTELCore(provider, "ledger", zapcore.WarnLevel)).With(zap.String("component", "coordinator"))
	log.Info("transaction committed")
	log.Warn("lock wait exceeded")

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	assert.Equal(t, []string{"lock wait exceeded"}, exporter.bodies)
}

func TestLevelFilterCore_Check(t *testing.T) {
	inner, recorded := observer.New(zapcore.DebugLevel)
	log := zap.New(&levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel})

	log.Info("dropped")
	log.With(zap.Int("n", 1)).Error("kept")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, int64(1), entries[0].ContextMap()["n"])
}
