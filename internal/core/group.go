package core

import (
	"sync"

	"github.com/dkeye/Televisit/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// Group is a threadsafe broadcast set of connections.
// It never closes adapter-owned resources.
type Group struct {
	name    domain.RoomName
	mu      sync.RWMutex
	members map[domain.ConnID]SignalConnection
}

func NewGroup(name domain.RoomName) *Group {
	return &Group{
		name:    name,
		members: make(map[domain.ConnID]SignalConnection),
	}
}

func (g *Group) Name() domain.RoomName { return g.name }

func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

func (g *Group) Has(id domain.ConnID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.members[id]
	return ok
}

func (g *Group) Add(id domain.ConnID, conn SignalConnection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[id] = conn
	log.Debug().Str("module", "core.group").Str("room", string(g.name)).Str("conn", string(id)).Msg("member added")
}

func (g *Group) Remove(id domain.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, id)
	log.Debug().Str("module", "core.group").Str("room", string(g.name)).Str("conn", string(id)).Msg("member removed")
}

// Broadcast sends f to every member except the one given; pass "" to reach all.
func (g *Group) Broadcast(except domain.ConnID, f Frame) PublishResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := PublishResult{}
	for id, conn := range g.members {
		if id == except {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	return res
}
