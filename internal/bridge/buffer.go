package bridge

// MessageEnvelope is one published payload with its version. Versions
// start at 1 and increase by one per publish for the life of a Channel.
type MessageEnvelope struct {
	Version uint64 `json:"version"`
	Message string `json:"message"`
}

// ring holds the newest envelopes, dropping the oldest when full. Envelopes
// are stored in version order with no gaps, so lookups are O(1).
type ring struct {
	items []MessageEnvelope
	head  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]MessageEnvelope, capacity)}
}

// push appends e and reports whether an older envelope was evicted.
func (r *ring) push(e MessageEnvelope) bool {
	if r.count < len(r.items) {
		r.items[(r.head+r.count)%len(r.items)] = e
		r.count++
		return false
	}
	r.items[r.head] = e
	r.head = (r.head + 1) % len(r.items)
	return true
}

// after returns the oldest envelope with Version > v.
func (r *ring) after(v uint64) (MessageEnvelope, bool) {
	if r.count == 0 {
		return MessageEnvelope{}, false
	}
	oldest := r.items[r.head].Version
	if v < oldest {
		return r.items[r.head], true
	}
	offset := v - oldest + 1
	if offset >= uint64(r.count) {
		return MessageEnvelope{}, false
	}
	return r.items[(r.head+int(offset))%len(r.items)], true
}

func (r *ring) len() int {
	return r.count
}
