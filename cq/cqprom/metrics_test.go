package cqprom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/cq"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestInstrumentServerRecordsDispatchOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := InstrumentServer(WithRegistry(reg))

	info := cq.DispatchInfo{Method: "Echo", MethodType: cq.DispatchMethodUnary}
	ctx, token := hook.OnDispatchStart(context.Background(), info)
	stats := &cq.CallStatistics{}
	stats.RecordInput(10)
	stats.RecordOutput(20)
	hook.OnDispatchEnd(ctx, token, info, stats, nil)

	mf := gatherFamily(t, reg, "cqserve_dispatch_total")
	require.NotNil(t, mf, "expected cqserve_dispatch_total to be registered")
	require.Len(t, mf.GetMetric(), 1)
	require.Equal(t, float64(1), mf.GetMetric()[0].GetCounter().GetValue())
}

func TestInstrumentServerCountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := InstrumentServer(WithRegistry(reg))

	info := cq.DispatchInfo{Method: "Fail", MethodType: cq.DispatchMethodUnary}
	ctx, token := hook.OnDispatchStart(context.Background(), info)
	hook.OnDispatchEnd(ctx, token, info, &cq.CallStatistics{}, errors.New("boom"))

	mf := gatherFamily(t, reg, "cqserve_dispatch_errors_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	require.Equal(t, float64(1), mf.GetMetric()[0].GetCounter().GetValue())
}
