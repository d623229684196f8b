package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/clock"
	"github.com/iudanet/paysync/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return 0
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e)
	default:
	}
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "online", WentOnline.String())
	assert.Equal(t, "offline", WentOffline.String())
	assert.Equal(t, "foreground", Foregrounded.String())
	assert.Equal(t, "unknown", Event(0).String())
}

func TestManual(t *testing.T) {
	m := NewManual(false)
	assert.False(t, m.Online())

	events, unsubscribe := m.Subscribe()

	m.SetOnline(true)
	assert.True(t, m.Online())
	assert.Equal(t, WentOnline, receive(t, events))

	// Повторная установка того же состояния не порождает событие
	m.SetOnline(true)
	assertNoEvent(t, events)

	m.Foreground()
	assert.Equal(t, Foregrounded, receive(t, events))

	m.SetOnline(false)
	assert.Equal(t, WentOffline, receive(t, events))

	unsubscribe()
	unsubscribe()
	m.SetOnline(true)
	assertNoEvent(t, events)
}

func TestManual_ConcurrentSetOnline(t *testing.T) {
	m := NewManual(false)
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	// не больше subscriberBuffer событий, чтобы ни одно не потерялось
	var wg sync.WaitGroup
	for i := range subscriberBuffer {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.SetOnline(i%2 == 0)
		}()
	}
	wg.Wait()

	n := len(events)
	require.Positive(t, n)

	// события чередуются и последнее совпадает с итоговым состоянием
	want := WentOnline
	var last Event
	for range n {
		last = receive(t, events)
		assert.Equal(t, want, last)
		if want == WentOnline {
			want = WentOffline
		} else {
			want = WentOnline
		}
	}
	assert.Equal(t, m.Online(), last == WentOnline)
}

func TestManual_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManual(false)
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for range subscriberBuffer * 2 {
		m.Foreground()
	}
	assert.Len(t, events, subscriberBuffer)
}

func TestProber_Check(t *testing.T) {
	var healthy atomic.Bool
	transport := &api.TransportMock{
		DoFunc: func(ctx context.Context, req *api.Request) (*api.Response, error) {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, "/health", req.Endpoint)
			if healthy.Load() {
				return &api.Response{StatusCode: http.StatusOK}, nil
			}
			return nil, &retry.Error{Category: retry.CategoryNetwork, Err: errors.New("connection refused")}
		},
	}

	p := NewProber(transport, time.Second, clock.NewFake(time.Now()), testLogger())
	events, unsubscribe := p.Subscribe()
	defer unsubscribe()

	assert.False(t, p.Check(context.Background()))
	assert.False(t, p.Online())
	assertNoEvent(t, events)

	healthy.Store(true)
	assert.True(t, p.Check(context.Background()))
	assert.True(t, p.Online())
	assert.Equal(t, WentOnline, receive(t, events))

	healthy.Store(false)
	assert.False(t, p.Check(context.Background()))
	assert.Equal(t, WentOffline, receive(t, events))
}

func TestProber_UnhealthyStatus(t *testing.T) {
	transport := &api.TransportMock{
		DoFunc: func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return &api.Response{StatusCode: http.StatusServiceUnavailable}, nil
		},
	}

	p := NewProber(transport, time.Second, clock.NewFake(time.Now()), testLogger())
	assert.False(t, p.Check(context.Background()))
}

func TestProber_HealthBody(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: `{"status":"ok"}`, want: true},
		{body: `{"status":"maintenance"}`, want: false},
		{body: `{}`, want: true},
		{body: `healthy`, want: true},
	}

	for _, tt := range tests {
		transport := &api.TransportMock{
			DoFunc: func(ctx context.Context, req *api.Request) (*api.Response, error) {
				return &api.Response{StatusCode: http.StatusOK, Body: []byte(tt.body)}, nil
			},
		}
		p := NewProber(transport, time.Second, clock.NewFake(time.Now()), testLogger())
		assert.Equal(t, tt.want, p.Check(context.Background()), tt.body)
	}
}

func TestProber_Run(t *testing.T) {
	clk := clock.NewFake(time.Now())
	transport := &api.TransportMock{
		DoFunc: func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return &api.Response{StatusCode: http.StatusOK}, nil
		},
	}

	p := NewProber(transport, 10*time.Second, clk, testLogger())
	events, unsubscribe := p.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Первая проверка выполняется сразу
	assert.Equal(t, WentOnline, receive(t, events))

	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return len(transport.DoCalls()) == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
