package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelOperation = "operation"
	ProfilingLabelKind      = "kind"
)

// MaxLabelValueLength truncates label values
const MaxLabelValueLength = 128

// identifiers make a profile series per request; they are never used as labels
var highCardinalityLabels = map[string]bool{
	"actor_id":       true,
	"request_id":     true,
	"transaction_id": true,
	"trace_id":       true,
	"span_id":        true,
}

// WithProfilingLabels runs fn with labels attached to the profiles it
// produces. Empty and high-cardinality labels are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// LedgerLabels labels a coordinator operation, e.g. ("submit", "TRANSFER")
func LedgerLabels(operation, kind string) map[string]string {
	return map[string]string{ProfilingLabelOperation: operation, ProfilingLabelKind: kind}
}

// HTTPRequestLabels labels an HTTP route
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{ProfilingLabelRoute: route, ProfilingLabelMethod: method}
}

// sanitizeLabels returns key/value pairs sorted by key
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		v := labels[k]
		key := sanitizeLabelKey(k)
		if key == "" || v == "" || highCardinalityLabels[key] {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_]
func sanitizeLabelKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.':
			b.WriteByte('_')
		}
	}
	return b.String()
}
