package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"torcida-quiz-service/internal/config"
	"torcida-quiz-service/internal/logger"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), logger.Nop(), config.TracingConfig{}, "test", nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.TracingConfig{Enabled: true, ServiceName: "torcida-quiz-test"}
	shutdown, err := InitTracing(context.Background(), logger.Nop(), cfg, "test", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "join-quiz")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, buf.String(), "join-quiz")
	require.Contains(t, buf.String(), "torcida-quiz-test")
}
