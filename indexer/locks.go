package indexer

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// channelLocks is the per-channel mutex registry behind the at-most-one
// concurrent pass guarantee. Locks are created lazily and never removed;
// the set of channels a bot sees is small and stable.
type channelLocks struct {
	locks *xsync.MapOf[uint64, *sync.Mutex]
}

func newChannelLocks() *channelLocks {
	return &channelLocks{
		locks: xsync.NewMapOf[uint64, *sync.Mutex](),
	}
}

func (c *channelLocks) get(channelID uint64) *sync.Mutex {
	mu, _ := c.locks.LoadOrCompute(channelID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}
