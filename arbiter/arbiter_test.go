package arbiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/tilecraft/slide/board"
)

type recorder struct {
	mu       sync.Mutex
	seen     []board.Direction
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (r *recorder) step(d board.Direction) {
	if r.inflight.Add(1) > 1 {
		r.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	r.mu.Lock()
	r.seen = append(r.seen, d)
	r.mu.Unlock()
	r.inflight.Add(-1)
}

func waitIdle(t *testing.T, a *Arbiter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.WaitIdle(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestCommandsRunInOrderOneAtATime(t *testing.T) {
	is := is.New(t)
	r := &recorder{}
	a := New(r.step, nil)
	defer a.Close()

	var want []board.Direction
	for i := 0; i < 50; i++ {
		d := board.Directions[i%4]
		want = append(want, d)
		a.Enqueue(d)
	}
	waitIdle(t, a)

	is.Equal(r.seen, want)
	is.True(!r.overlap.Load())
	is.Equal(a.State(), Idle)
	is.Equal(a.Pending(), 0)
}

func TestConcurrentEnqueueNeverOverlaps(t *testing.T) {
	is := is.New(t)
	r := &recorder{}
	a := New(r.step, nil)
	defer a.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				a.Enqueue(board.Up)
			}
		}()
	}
	wg.Wait()
	waitIdle(t, a)
	is.Equal(len(r.seen), 80)
	is.True(!r.overlap.Load())
}

func TestClearKeepsInflightCommand(t *testing.T) {
	is := is.New(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var ran []board.Direction
	a := New(func(d board.Direction) {
		if len(ran) == 0 {
			close(started)
			<-release
		}
		ran = append(ran, d)
	}, nil)
	defer a.Close()

	a.Enqueue(board.Left)
	<-started
	a.Enqueue(board.Right)
	a.Enqueue(board.Up)
	is.Equal(a.State(), Busy)
	is.Equal(a.Pending(), 2)
	is.Equal(a.Clear(), 2)
	close(release)
	waitIdle(t, a)
	is.Equal(ran, []board.Direction{board.Left})
}

func TestPacingBetweenSteps(t *testing.T) {
	is := is.New(t)
	var paced atomic.Int32
	a := New(func(board.Direction) {}, func() time.Duration {
		paced.Add(1)
		return 5 * time.Millisecond
	})
	defer a.Close()

	ts := time.Now()
	a.Enqueue(board.Down)
	a.Enqueue(board.Down)
	a.Enqueue(board.Down)
	waitIdle(t, a)
	is.Equal(paced.Load(), int32(3))
	is.True(time.Since(ts) >= 15*time.Millisecond)
}

func TestClosedArbiterIgnoresCommands(t *testing.T) {
	is := is.New(t)
	var n atomic.Int32
	a := New(func(board.Direction) { n.Add(1) }, nil)
	a.Close()
	a.Enqueue(board.Left)
	waitIdle(t, a)
	is.Equal(n.Load(), int32(0))
	is.Equal(a.State(), Idle)
}

func TestPacingDelay(t *testing.T) {
	is := is.New(t)
	p := DefaultPacing()
	is.Equal(p.Delay(false, 10*time.Millisecond), DefaultSettle)
	is.Equal(p.Delay(true, 10*time.Millisecond), time.Duration(0))
	is.Equal(p.Delay(true, 150*time.Millisecond), DefaultSettle)
	is.Equal(p.Delay(true, 100*time.Millisecond), DefaultSettle)
}
