package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaybroker/broker/internal/ratelimit"
)

// fakeProvider is a Provider whose Connect/HealthCheck outcomes are
// controlled by the test, standing in for telegrambot.Bot.
type fakeProvider struct {
	mu         sync.Mutex
	connects   int
	healthy    bool
	connectErr error
	events     chan Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{healthy: true, events: make(chan Event)}
}

func (f *fakeProvider) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeProvider) Disconnect() error { return nil }

func (f *fakeProvider) SendMessage(ctx context.Context, recipient, text string) error { return nil }

func (f *fakeProvider) Receive() <-chan Event { return f.events }

func (f *fakeProvider) HealthCheck(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeProvider) setHealthy(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = v
}

func (f *fakeProvider) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func TestRunConnectionMonitorReconnectsAfterHealthCheckFailure(t *testing.T) {
	p := newFakeProvider()
	var syncCalls int32
	tr := New(p, ratelimit.Config{}, func(ctx context.Context) error {
		atomic.AddInt32(&syncCalls, 1)
		return nil
	})
	tr.SetHealthCheckInterval(10 * time.Millisecond)

	require.NoError(t, tr.Connect(context.Background()))
	require.Equal(t, Connected, tr.State())
	require.Equal(t, 1, p.connectCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.RunConnectionMonitor(ctx)

	p.setHealthy(false)
	require.Eventually(t, func() bool {
		return p.connectCount() >= 2
	}, 3*time.Second, 10*time.Millisecond, "expected the monitor to observe the failed probe and redial")

	p.setHealthy(true)
	require.Eventually(t, func() bool {
		return tr.State() == Connected
	}, 3*time.Second, 10*time.Millisecond, "expected the transport to recover to CONNECTED")

	require.GreaterOrEqual(t, atomic.LoadInt32(&syncCalls), int32(2), "expected a sync pass on initial connect and again on reconnect")
}

func TestRunConnectionMonitorIgnoresHealthyProvider(t *testing.T) {
	p := newFakeProvider()
	tr := New(p, ratelimit.Config{}, nil)
	tr.SetHealthCheckInterval(10 * time.Millisecond)
	require.NoError(t, tr.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.RunConnectionMonitor(ctx)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, Connected, tr.State())
	require.Equal(t, 1, p.connectCount())
}
