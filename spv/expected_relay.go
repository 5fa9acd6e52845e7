package spv

import "context"

// Relay reports the proof-of-work difficulty of the current and previous
// Bitcoin retarget epochs.
type Relay interface {
	CurrentEpochDifficulty(ctx context.Context) (uint64, error)
	PrevEpochDifficulty(ctx context.Context) (uint64, error)
}
