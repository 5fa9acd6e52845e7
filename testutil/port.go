package testutil

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// Protects allocatedPorts
	portMu         sync.Mutex
	allocatedPorts = make(map[int]struct{})
)

// AllocateUniquePort returns a localhost TCP port that was free at the time
// of the call and has not been handed out to another test in this process.
func AllocateUniquePort(t *testing.T) int {
	t.Helper()

	portMu.Lock()
	defer portMu.Unlock()

	for i := 0; i < 10; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		port := l.Addr().(*net.TCPAddr).Port
		require.NoError(t, l.Close())

		if _, taken := allocatedPorts[port]; taken {
			continue
		}
		allocatedPorts[port] = struct{}{}

		return port
	}

	t.Fatalf("failed to allocate a unique port")

	return 0
}
