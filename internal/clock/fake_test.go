package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_NowAndAdvance(t *testing.T) {
	f := NewFake(epoch)
	assert.Equal(t, epoch, f.Now())

	f.Advance(90 * time.Second)
	assert.Equal(t, epoch.Add(90*time.Second), f.Now())
}

func TestFake_After(t *testing.T) {
	f := NewFake(epoch)
	ch := f.After(5 * time.Second)

	f.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	f.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(5*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Equal(t, 0, f.Pending())
}

func TestFake_AfterNonPositive(t *testing.T) {
	f := NewFake(epoch)
	select {
	case <-f.After(0):
	default:
		t.Fatal("After(0) must be ready immediately")
	}
}

func TestFake_Ticker(t *testing.T) {
	f := NewFake(epoch)
	ticker := f.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		f.Advance(30 * time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
	assert.Equal(t, 1, f.Pending())

	ticker.Stop()
	assert.Equal(t, 0, f.Pending())
	f.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFake_TickerDropsWhenBehind(t *testing.T) {
	f := NewFake(epoch)
	ticker := f.NewTicker(time.Second)
	defer ticker.Stop()

	f.Advance(10 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticks must not queue up")
	default:
	}
}

func TestFake_WaitForWaiters(t *testing.T) {
	f := NewFake(epoch)
	done := make(chan struct{})

	go func() {
		<-f.After(time.Minute)
		close(done)
	}()

	f.WaitForWaiters(1)
	f.Advance(time.Minute)
	<-done
}

func TestFake_NewTickerPanics(t *testing.T) {
	f := NewFake(epoch)
	assert.Panics(t, func() { f.NewTicker(0) })
}
