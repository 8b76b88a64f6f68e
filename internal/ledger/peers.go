package ledger

import "financas/internal/core"

// AddPeer appends a peer. Ids are not checked for uniqueness.
func (l *Ledger) AddPeer(peer core.Peer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers = append(l.peers, peer)
}

// Peers returns a copy of the peer collection.
func (l *Ledger) Peers() []core.Peer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Peer(nil), l.peers...)
}

// Peer resolves a peer id. Transactions only hold the id, so a lookup miss
// is an ordinary outcome.
func (l *Ledger) Peer(id string) (core.Peer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.findPeer(id)
}

func (l *Ledger) findPeer(id string) (core.Peer, bool) {
	for _, p := range l.peers {
		if p.ID == id {
			return p, true
		}
	}
	return core.Peer{}, false
}

// UpdatePeer patches the first peer with the given id.
func (l *Ledger) UpdatePeer(id string, patch PeerPatch) (core.Peer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.peers {
		if l.peers[i].ID == id {
			l.peers[i] = patch.apply(l.peers[i])
			return l.peers[i], true
		}
	}
	return core.Peer{}, false
}

// DeletePeer removes the peer. Transactions delegated to it keep the now
// dangling peer id.
func (l *Ledger) DeletePeer(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.peers {
		if l.peers[i].ID == id {
			l.peers = append(l.peers[:i:i], l.peers[i+1:]...)
			return true
		}
	}
	return false
}
