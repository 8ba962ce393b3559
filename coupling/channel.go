package coupling

import (
	"fmt"

	"github.com/notargets/gorad/physics"
	"github.com/notargets/gorad/topology"
)

type sessionState uint8

const (
	stateInitialized sessionState = iota
	stateConnected
	stateDestroyed
)

func (s sessionState) String() string {
	switch s {
	case stateInitialized:
		return "initialized"
	case stateConnected:
		return "connected"
	default:
		return "destroyed"
	}
}

// ChannelSession is one solver rank's end of the solver-inferer exchange.
// The lifecycle is strict:
//
//	New -> Connect -> {Put xN, Fence, Fence} -> Corrections -> Disconnect -> ... -> Delete
//
// Connect/Disconnect bracket each repeat iteration; the first Fence releases
// the filled send buffer to the paired inferer, the second guarantees the
// corrections are fully written before the solver reads them. The radiation
// call runs between the two fences, concurrent with the inference. Calling
// any operation out of order is a contract violation and panics.
//
// Both record buffers are allocated once at New to the block capacity and
// reused across iterations; Connect asserts capacity instead of
// reallocating. A session is exclusively owned by its solver rank and must
// not be shared.
type ChannelSession struct {
	Rank       int // Owning solver rank
	PairedRank int // Inferer rank serving this session

	pool  *InfererPool
	send  []*physics.StateRecord
	recv  []*physics.CorrectionRecord
	shape physics.Shape

	state     sessionState
	nSlots    int  // Slot count of the current connection
	filled    int  // Send slots filled by Put since Connect
	fenced    bool // True between the first and second fence of a pair
	completed bool // True once the second fence has delivered corrections
	pending   *exchange
}

func NewChannelSession(rank int, topo *topology.ProcessTopology, pool *InfererPool,
	shape physics.Shape, capacity int) (cs *ChannelSession) {
	if capacity <= 0 {
		panic(fmt.Sprintf("session capacity must be positive, have %d", capacity))
	}
	cs = &ChannelSession{
		Rank:       rank,
		PairedRank: topo.InfererRank(rank),
		pool:       pool,
		send:       make([]*physics.StateRecord, capacity),
		recv:       make([]*physics.CorrectionRecord, capacity),
		shape:      shape,
		state:      stateInitialized,
	}
	for i := 0; i < capacity; i++ {
		cs.send[i] = physics.NewStateRecord(shape)
		cs.recv[i] = physics.NewCorrectionRecord(shape)
	}
	return
}

// Connect opens the session for one exchange iteration. nIn send slots will
// be filled and nOut correction slots read back; the coupling contract
// requires the two counts to match.
func (cs *ChannelSession) Connect(nIn, nOut int) {
	cs.requireState(stateInitialized, "connect")
	if nIn != nOut {
		panic(fmt.Sprintf("rank %d: %d state slots vs %d correction slots, counts must match",
			cs.Rank, nIn, nOut))
	}
	if nIn <= 0 || nIn > len(cs.send) {
		panic(fmt.Sprintf("rank %d: connect with %d slots, session capacity is %d",
			cs.Rank, nIn, len(cs.send)))
	}
	cs.nSlots = nIn
	cs.filled = 0
	cs.fenced = false
	cs.completed = false
	for _, cr := range cs.recv[:nIn] {
		cr.Zero()
	}
	cs.state = stateConnected
}

// Put copies sr into the next send slot. Non-blocking; the data does not
// move until the following Fence.
func (cs *ChannelSession) Put(sr *physics.StateRecord) {
	cs.requireState(stateConnected, "put")
	if cs.fenced || cs.completed {
		panic(fmt.Sprintf("rank %d: put after fence within the same connection", cs.Rank))
	}
	if cs.filled >= cs.nSlots {
		panic(fmt.Sprintf("rank %d: put overflows the %d connected slots", cs.Rank, cs.nSlots))
	}
	cs.send[cs.filled].CopyFrom(sr)
	cs.filled++
}

// PutColumn snapshots column col of atm straight into the next send slot,
// avoiding the intermediate record copy of Put.
func (cs *ChannelSession) PutColumn(atm *physics.Atmosphere, col int) {
	cs.requireState(stateConnected, "put")
	if cs.fenced || cs.completed {
		panic(fmt.Sprintf("rank %d: put after fence within the same connection", cs.Rank))
	}
	if cs.filled >= cs.nSlots {
		panic(fmt.Sprintf("rank %d: put overflows the %d connected slots", cs.Rank, cs.nSlots))
	}
	atm.ExtractColumn(col, cs.send[cs.filled])
	cs.filled++
}

// Fence is the collective synchronization point, called exactly twice per
// connection. The first call requires every connected slot to be filled,
// hands the send buffer to the paired inferer and blocks until it is
// consumed. The second blocks until the corrections are fully written and
// surfaces any inference failure; there is no retry, a failed exchange
// leaves the pairing in an undefined state and must abort the run.
func (cs *ChannelSession) Fence() error {
	cs.requireState(stateConnected, "fence")
	if !cs.fenced {
		if cs.completed {
			panic(fmt.Sprintf("rank %d: third fence within one connection", cs.Rank))
		}
		if cs.filled != cs.nSlots {
			panic(fmt.Sprintf("rank %d: fence with %d of %d slots filled",
				cs.Rank, cs.filled, cs.nSlots))
		}
		ex := &exchange{
			solverRank: cs.Rank,
			states:     cs.send[:cs.nSlots],
			corrs:      cs.recv[:cs.nSlots],
			taken:      make(chan struct{}),
			done:       make(chan error, 1),
		}
		cs.pool.submit(cs.PairedRank, ex)
		<-ex.taken
		cs.pending = ex
		cs.fenced = true
		return nil
	}
	err := <-cs.pending.done
	cs.pending = nil
	cs.fenced = false
	if err != nil {
		// The pairing's state is undefined after a failed exchange; the
		// corrections stay unreadable and the run must abort.
		return fmt.Errorf("rank %d: inference on rank %d failed: %w",
			cs.Rank, cs.PairedRank, err)
	}
	cs.completed = true
	return nil
}

// Corrections returns the received correction block. Valid only after the
// second fence of the connection.
func (cs *ChannelSession) Corrections() []*physics.CorrectionRecord {
	cs.requireState(stateConnected, "read corrections")
	if !cs.completed {
		panic(fmt.Sprintf("rank %d: corrections read before the exchange completed", cs.Rank))
	}
	return cs.recv[:cs.nSlots]
}

// Disconnect closes the iteration's exchange. The session returns to the
// initialized state and may be connected again; the record buffers are
// retained for reuse.
func (cs *ChannelSession) Disconnect() {
	cs.requireState(stateConnected, "disconnect")
	if cs.fenced {
		panic(fmt.Sprintf("rank %d: disconnect with an unbalanced fence in flight", cs.Rank))
	}
	cs.state = stateInitialized
}

// Delete destroys the session. Valid only on a disconnected session; the
// buffers are released and no further operation is legal.
func (cs *ChannelSession) Delete() {
	cs.requireState(stateInitialized, "delete")
	cs.send = nil
	cs.recv = nil
	cs.state = stateDestroyed
}

// Close destroys the session whatever state it is in, abandoning any
// connection left open by a failed exchange. An in-flight fence is drained
// first so the paired inferer is not left blocked on the handoff. Idempotent.
func (cs *ChannelSession) Close() {
	if cs.state == stateDestroyed {
		return
	}
	if cs.pending != nil {
		<-cs.pending.done
		cs.pending = nil
	}
	cs.fenced = false
	cs.completed = false
	cs.send = nil
	cs.recv = nil
	cs.state = stateDestroyed
}

func (cs *ChannelSession) requireState(want sessionState, op string) {
	if cs.state != want {
		panic(fmt.Sprintf("rank %d: %s on a %s session", cs.Rank, op, cs.state))
	}
}
