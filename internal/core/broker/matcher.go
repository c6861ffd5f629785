package broker

// matchWaitingLocked turns the waiting pool into disjoint pairs. The pool is
// shuffled uniformly and pairs are taken off the front until fewer than two
// connections remain; with an odd count exactly one stays queued for the
// next pass. Safe to call with 0 or 1 waiting connections. Runs after every
// enqueue, under the broker lock.
func (b *Broker) matchWaitingLocked() {
	if b.pool.size() < 2 {
		return
	}

	b.pool.shuffle(b.rng)
	for {
		first, second, ok := b.pool.popPair()
		if !ok {
			return
		}
		b.pairLocked(b.conns[first], b.conns[second], false)
	}
}
