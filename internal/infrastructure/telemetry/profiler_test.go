package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(config.ProfilerConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	_, err := NewProfiler(config.ProfilerConfig{Enabled: true, ApplicationName: "ledger"}, nil)
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(config.ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, nil)
	assert.ErrorContains(t, err, "application name")
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Operation":      "submit",
		"http-method":    "POST",
		"transaction_id": "4f1c",
		"empty":          "",
		"route":          strings.Repeat("x", MaxLabelValueLength+10),
	})

	require.Len(t, pairs, 6)
	assert.Equal(t, []string{"http_method", "POST", "operation", "submit", "route"}, pairs[:5])
	assert.Len(t, pairs[5], MaxLabelValueLength)
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	ran := 0
	WithProfilingLabels(context.Background(), LedgerLabels(OperationSubmit, "OUT"), func(context.Context) { ran++ })
	WithProfilingLabels(context.Background(), nil, func(context.Context) { ran++ })
	WithProfilingLabels(context.Background(), HTTPRequestLabels("/api/v1/transactions", "POST"), func(context.Context) { ran++ })
	assert.Equal(t, 3, ran)
}
