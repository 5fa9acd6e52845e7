package keylock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/lib/keylock"
)

func TestLockSerializesSameKey(t *testing.T) {
	t.Parallel()

	l := keylock.New()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("reserve")
			defer unlock()

			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
	require.Equal(t, 0, l.Len())
}

func TestLockIndependentKeys(t *testing.T) {
	t.Parallel()

	l := keylock.New()

	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	require.Equal(t, 1, l.Len())
	unlockA()
	require.Equal(t, 0, l.Len())
}
