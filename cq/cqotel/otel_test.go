package cqotel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/cqserve/cqserve/cq"
)

func TestInstrumentServerRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	hook := InstrumentServer(nil, Config{
		TracerProvider: tp,
		EnableTracing:  true,
	})

	info := cq.DispatchInfo{Method: "Echo", MethodType: cq.DispatchMethodUnary}
	ctx, token := hook.OnDispatchStart(context.Background(), info)
	hook.OnDispatchEnd(ctx, token, info, &cq.CallStatistics{}, nil)

	require.NoError(t, tp.Shutdown(context.Background()))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "cqserve/Echo", spans[0].Name())
}

func TestInstrumentServerRecordsErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	hook := InstrumentServer(nil, Config{
		TracerProvider: tp,
		EnableTracing:  true,
	})

	info := cq.DispatchInfo{Method: "Fail", MethodType: cq.DispatchMethodUnary}
	ctx, token := hook.OnDispatchStart(context.Background(), info)
	hook.OnDispatchEnd(ctx, token, info, &cq.CallStatistics{}, errors.New("boom"))

	require.NoError(t, tp.Shutdown(context.Background()))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, uint32(1), uint32(spans[0].Status().Code)) // codes.Error
}
