package chart

// Connection is a directed control-flow edge between two node names.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// String renders the connection as an edge line.
func (c Connection) String() string {
	return c.From + " --> " + c.To
}

// Tracker records connections in insertion order. Nothing is validated or
// deduplicated on append.
type Tracker struct {
	conns []Connection
}

// Connect records an edge from a to b.
func (t *Tracker) Connect(a, b string) {
	t.conns = append(t.conns, Connection{From: a, To: b})
}

// Connections returns a copy of the recorded connections.
func (t *Tracker) Connections() []Connection {
	out := make([]Connection, len(t.conns))
	copy(out, t.conns)
	return out
}

// Len returns the number of recorded connections.
func (t *Tracker) Len() int { return len(t.conns) }

// Reset forgets every recorded connection.
func (t *Tracker) Reset() { t.conns = nil }
