package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSchedulerStopCancelsContext(t *testing.T) {
	s := New(context.Background(), nil)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}
	if s.Context().Err() == nil {
		t.Fatal("want context cancelled after Stop")
	}
}

func TestGroupWaitJoinsAllComponents(t *testing.T) {
	g := NewGroup(nil)
	var ran [3]bool
	for i := range ran {
		i := i
		g.Go("component", func() error {
			ran[i] = true
			return nil
		})
	}
	g.Wait()
	for i, ok := range ran {
		if !ok {
			t.Fatalf("component %d did not run", i)
		}
	}
}

func TestGroupSwallowsContextCanceled(t *testing.T) {
	g := NewGroup(nil)
	g.Go("component", func() error { return context.Canceled })
	g.Go("component", func() error { return errors.New("boom") })
	g.Wait() // neither case should panic or hang
}
