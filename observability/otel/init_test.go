package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = secret ,broken, =x,tenant=vegov")
	require.Equal(t, map[string]string{"api-key": "secret", "tenant": "vegov"}, headers)
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutTraces(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "vegovd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSamplerRatio(t *testing.T) {
	require.Equal(t, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description(), sampler(0).Description())
	require.Equal(t, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description(), sampler(1).Description())
	require.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestExporterOptionsDefaultEndpoint(t *testing.T) {
	require.Len(t, exporterOptions(Config{}), 1)
	require.Len(t, exporterOptions(Config{Endpoint: "collector:4318", Insecure: true, Headers: map[string]string{"k": "v"}}), 3)
}
