package testutil

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func GenRandomByteArray(r *rand.Rand, length uint64) []byte {
	b := make([]byte, length)
	r.Read(b)

	return b
}

func GenRandomHexStr(r *rand.Rand, length uint64) string {
	return hex.EncodeToString(GenRandomByteArray(r, length))
}

// GenRandomReserveID returns a reserve identifier shaped like a holder
// address.
func GenRandomReserveID(r *rand.Rand) string {
	return fmt.Sprintf("qc-%s", GenRandomHexStr(r, 8))
}

func AddRandomSeedsToFuzzer(f *testing.F, num uint) {
	r := rand.New(rand.NewSource(time.Now().Unix()))
	for i := uint(0); i < num; i++ {
		f.Add(r.Int63())
	}
}

// ManualClock is a settable time source for components that take a clock
// function.
type ManualClock struct {
	// Protects now
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}
