package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" authorization=Bearer abc , x-tenant = ideacapital,broken,=skip")
	require.Equal(t, map[string]string{
		"authorization": "Bearer abc",
		"x-tenant":      "ideacapital",
	}, got)
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{Traces: true})
	require.ErrorIs(t, err, errServiceName)
}

func TestSamplerHonoursFractionalRatio(t *testing.T) {
	require.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(0).Description())
	require.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1.5).Description())
	require.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
