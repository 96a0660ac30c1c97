package addr

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("ibaddr", reg)
	require.NoError(t, err)

	f := newFakeNet()
	f.setNeighbor("10.0.0.2", macPeer)
	s := NewScheduler(NewEngine(f, f, f), DefaultConfig(), WithMetrics(m))

	var rec recorder
	c := s.RegisterClient()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clients))

	_, err = s.Submit(c, interfaces.ResolveRequest{Dst: sockAddr("10.0.0.2"), Callback: rec.callback("a")})
	require.NoError(t, err)
	_, err = s.Submit(c, interfaces.ResolveRequest{Dst: sockAddr("10.0.0.3"), Callback: rec.callback("b")})
	require.NoError(t, err)
	_, err = s.Submit(c, interfaces.ResolveRequest{Dst: sockAddr("198.51.100.1"), Callback: rec.callback("c")})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submittedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queueDepth))

	s.process(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completedTotal.WithLabelValues(types.StatusSucceeded.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueDepth))

	h, err := s.Submit(c, interfaces.ResolveRequest{Dst: sockAddr("10.0.0.4"), Callback: rec.callback("d")})
	require.NoError(t, err)
	s.Cancel(h)
	s.process(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completedTotal.WithLabelValues(types.StatusCanceled.String())))

	n, err := testutil.GatherAndCount(reg, "ibaddr_addr_resolve_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 同一注册表重复注册失败
	_, err = NewMetrics("ibaddr", reg)
	assert.Error(t, err)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.submitted()
		m.rejected()
		m.completed(types.StatusSucceeded, 0)
		m.setQueueDepth(3)
		m.clientRegistered()
		m.clientUnregistered()
	})
}
