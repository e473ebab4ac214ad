package testutil

import "fmt"

// SequenceMinter mints UUID-shaped tokens from a DeterministicClock:
// 00000000-0000-0000-0000-000000000001, ...000002, and so on.
//
// Safe for concurrent use.
type SequenceMinter struct {
	clock *DeterministicClock
}

// NewSequenceMinter creates a minter whose first token ends in 1.
func NewSequenceMinter() *SequenceMinter {
	return &SequenceMinter{clock: NewDeterministicClock()}
}

// Mint returns the next token.
func (m *SequenceMinter) Mint() string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", m.clock.Next())
}

// Reset restarts the sequence.
func (m *SequenceMinter) Reset() {
	m.clock.Reset()
}

// FixedMinter mints the same token every time. Used to force identity
// collisions.
type FixedMinter struct {
	token string
}

// NewFixedMinter creates a fixed minter. An empty token means
// "00000000-0000-0000-0000-000000000000".
func NewFixedMinter(token string) *FixedMinter {
	if token == "" {
		token = "00000000-0000-0000-0000-000000000000"
	}
	return &FixedMinter{token: token}
}

// Mint returns the fixed token.
func (m *FixedMinter) Mint() string {
	return m.token
}
