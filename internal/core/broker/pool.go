package broker

import (
	"math/rand"

	"pairlink/internal/core/domain"
)

// waitingPool holds the connections seeking a random partner. Membership is
// kept in lockstep with ConnectionState: a connection is in the pool exactly
// when its state is Waiting. Guarded by the broker's lock.
type waitingPool struct {
	order  []domain.ConnectionID
	member map[domain.ConnectionID]struct{}
}

func newWaitingPool() *waitingPool {
	return &waitingPool{
		member: make(map[domain.ConnectionID]struct{}),
	}
}

// enqueue appends the connection unless it is already queued.
func (p *waitingPool) enqueue(id domain.ConnectionID) {
	if _, ok := p.member[id]; ok {
		return
	}
	p.member[id] = struct{}{}
	p.order = append(p.order, id)
}

// remove is idempotent; called on pairing, disconnect and direct invites.
func (p *waitingPool) remove(id domain.ConnectionID) {
	if _, ok := p.member[id]; !ok {
		return
	}
	delete(p.member, id)
	for i, queued := range p.order {
		if queued == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *waitingPool) contains(id domain.ConnectionID) bool {
	_, ok := p.member[id]
	return ok
}

func (p *waitingPool) size() int {
	return len(p.order)
}

// shuffle randomizes the queue. Matching is deliberately random rather than
// FIFO so users cannot game queue position.
func (p *waitingPool) shuffle(rng *rand.Rand) {
	rng.Shuffle(len(p.order), func(i, j int) {
		p.order[i], p.order[j] = p.order[j], p.order[i]
	})
}

// popPair takes the two front connections out of the pool. Returns ok=false
// when fewer than two remain; the trailing unmatched connection stays queued.
func (p *waitingPool) popPair() (a, b domain.ConnectionID, ok bool) {
	if len(p.order) < 2 {
		return "", "", false
	}
	a, b = p.order[0], p.order[1]
	p.order = p.order[2:]
	delete(p.member, a)
	delete(p.member, b)
	return a, b, true
}
