package player

import "sync/atomic"

// Handle is the optional player capability. An absent handle is a valid
// state: the song feature is off or no player is configured.
type Handle struct {
	p *Player
}

// Present wraps a constructed player.
func Present(p *Player) Handle {
	return Handle{p: p}
}

// Absent returns the handle for a disabled player.
func Absent() Handle {
	return Handle{}
}

// Get returns the player and whether it exists.
func (h Handle) Get() (*Player, bool) {
	return h.p, h.p != nil
}

// Slot lets the web layer, which starts before the player is constructed,
// observe the handle once it is bound. Until then it reads as absent.
type Slot struct {
	p atomic.Pointer[Player]
}

// Bind publishes h. Binding an absent handle leaves the slot empty.
func (s *Slot) Bind(h Handle) {
	if p, ok := h.Get(); ok {
		s.p.Store(p)
	}
}

// Handle returns the bound handle.
func (s *Slot) Handle() Handle {
	return Handle{p: s.p.Load()}
}
