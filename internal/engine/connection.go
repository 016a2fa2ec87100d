package engine

type ConnectionStatus string

const (
	ConnectionActive ConnectionStatus = "active"
	ConnectionClosed ConnectionStatus = "closed"
)

// Pair is the canonical (low, high) ordering of two member ids.
type Pair struct {
	Low  uint64
	High uint64
}

// CanonicalPair orders a and b so both initiation orders map to one key.
func CanonicalPair(a, b uint64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// Other returns the member of the pair that is not id.
func (p Pair) Other(id uint64) uint64 {
	if p.Low == id {
		return p.High
	}
	return p.Low
}
