package addr

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/eventbus"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

func fakeNetOption(f *fakeNet) fx.Option {
	return fx.Provide(
		func() interfaces.RouteService { return f },
		func() interfaces.NeighborService { return f },
		func() interfaces.InterfaceRegistry { return f },
	)
}

func TestModule_Lifecycle(t *testing.T) {
	f := newFakeNet()
	cfg := config.NewConfig()
	cfg.Resolver.DefaultTimeout = config.Duration(time.Minute)

	var (
		resolver interfaces.AddressResolver
		sched    *Scheduler
		bus      interfaces.EventBus
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fakeNetOption(f),
		eventbus.Module(),
		Module(),
		fx.Populate(&resolver, &sched, &bus),
	)
	app.RequireStart()

	// 启动后可以使用同步查询
	f.setNeighbor("10.0.0.2", macPeer)
	_, err := sched.FindL2EthByGRH(context.Background(), types.IPToGID(netipAddr("10.0.0.1")), types.IPToGID(netipAddr("10.0.0.2")), 0)
	require.NoError(t, err)

	var rec recorder
	c := resolver.RegisterClient()
	_, err = resolver.Submit(c, interfaces.ResolveRequest{Dst: sockAddr("10.0.0.30"), Callback: rec.callback("a")})
	require.NoError(t, err)

	// 有效的邻居事件唤醒调度器
	em, err := bus.Emitter(new(types.EvtNeighborUpdate))
	require.NoError(t, err)
	defer em.Close()

	f.setNeighbor("10.0.0.30", macPeer)
	require.NoError(t, em.Emit(types.EvtNeighborUpdate{IfIndex: 2, IP: netipAddr("10.0.0.30"), State: types.NeighborReachable}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.StatusSucceeded, rec.get(0).Status)

	app.RequireStop()
}

func TestModule_InvalidNeighborEventIgnored(t *testing.T) {
	f := newFakeNet()
	cfg := config.NewConfig()
	cfg.Resolver.DefaultTimeout = config.Duration(time.Minute)

	var (
		resolver interfaces.AddressResolver
		bus      interfaces.EventBus
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fakeNetOption(f),
		eventbus.Module(),
		Module(),
		fx.Populate(&resolver, &bus),
	)
	app.RequireStart()
	defer app.RequireStop()

	var rec recorder
	_, err := resolver.Submit(resolver.RegisterClient(), interfaces.ResolveRequest{Dst: sockAddr("10.0.0.31"), Callback: rec.callback("a")})
	require.NoError(t, err)

	em, err := bus.Emitter(new(types.EvtNeighborUpdate))
	require.NoError(t, err)
	defer em.Close()

	f.setNeighbor("10.0.0.31", macPeer)
	require.NoError(t, em.Emit(types.EvtNeighborUpdate{IP: netipAddr("10.0.0.31"), State: types.NeighborIncomplete}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.len(), "incomplete neighbor must not wake the scheduler")

	// 链路变化同样触发唤醒
	lem, err := bus.Emitter(new(types.EvtLinkChange))
	require.NoError(t, err)
	defer lem.Close()
	require.NoError(t, lem.Emit(types.EvtLinkChange{Type: types.LinkChangeMinor}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestModule_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	var sched *Scheduler
	app := fxtest.New(t,
		fakeNetOption(newFakeNet()),
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module(),
		fx.Populate(&sched),
	)
	app.RequireStart()
	app.RequireStop()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
	require.NotNil(t, sched.metrics)
}
