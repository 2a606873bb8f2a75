package observability_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lendpool/pkg/config"
	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/observability"
)

func TestNewTracerProvider_ExportsSpans(t *testing.T) {
	var out bytes.Buffer
	tp, shutdown, err := observability.NewTracerProvider(config.TracingConfig{
		Enabled:      true,
		ServiceName:  "poolbench-test",
		SamplingRate: 1,
	}, &out)
	require.NoError(t, err)

	ctx, span := observability.StartSpan(context.Background(), tp.Tracer("test"), "stress.run")
	span.SetAttribute("workers", 4)
	span.SetAttribute("handoff", true)
	span.SetAttribute("lends", uint64(128))
	span.AddEvent("phase.done")
	span.RecordError(errors.New(errors.ErrorTypeData, "content mismatch"))
	span.End()
	require.NotNil(t, ctx)

	require.NoError(t, shutdown(context.Background()))

	exported := out.String()
	assert.Contains(t, exported, `"Name": "stress.run"`)
	assert.Contains(t, exported, "poolbench-test")
	assert.Contains(t, exported, "phase.done")
	assert.Contains(t, exported, "content mismatch")
	assert.Contains(t, exported, "duration_ms")
}

func TestNewTracerProvider_NeverSample(t *testing.T) {
	var out bytes.Buffer
	tp, shutdown, err := observability.NewTracerProvider(config.TracingConfig{
		Enabled:      true,
		ServiceName:  "poolbench-test",
		SamplingRate: 0,
	}, &out)
	require.NoError(t, err)

	_, span := observability.StartSpan(context.Background(), tp.Tracer("test"), "dropped")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, out.String())
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	var out bytes.Buffer
	tp, shutdown, err := observability.NewTracerProvider(config.TracingConfig{}, &out)
	require.NoError(t, err)

	_, span := observability.StartSpan(context.Background(), tp.Tracer("test"), "ignored")
	span.RecordError(nil)
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, out.String())
}
