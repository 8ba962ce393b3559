package coupling

import (
	"fmt"
	"sync"

	"github.com/notargets/gorad/physics"
	"github.com/notargets/gorad/topology"
)

// exchange is one in-flight block transfer between a solver and its paired
// inferer. taken closes when the inferer has consumed the send buffer (first
// fence); done delivers the inference result (second fence).
type exchange struct {
	solverRank int
	states     []*physics.StateRecord
	corrs      []*physics.CorrectionRecord
	taken      chan struct{}
	done       chan error
}

// InfererPool runs the inferer process group. Each started inferer rank is a
// goroutine draining a request channel; solver ranks sharing an inferer
// serialize on that channel. Start and Stop model the one-time handshake
// issued by the elected solver of each paired group.
type InfererPool struct {
	Topo  *topology.ProcessTopology
	Model Inferer
	mu    sync.RWMutex
	reqs  map[int]chan *exchange // keyed by inferer rank
	wg    sync.WaitGroup
}

func NewInfererPool(topo *topology.ProcessTopology, model Inferer) (ip *InfererPool) {
	ip = &InfererPool{
		Topo:  topo,
		Model: model,
		reqs:  make(map[int]chan *exchange),
	}
	return
}

// Start launches the inferer serving rank. Exactly one solver per paired
// group issues it, once, before the first iteration; a second start is a
// protocol violation.
func (ip *InfererPool) Start(rank int) {
	if ip.Topo.Role(rank) != topology.Inferer {
		panic(fmt.Sprintf("rank %d is not an inferer rank", rank))
	}
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if _, running := ip.reqs[rank]; running {
		panic(fmt.Sprintf("inferer %d started twice", rank))
	}
	reqs := make(chan *exchange)
	ip.reqs[rank] = reqs
	ip.wg.Add(1)
	go ip.serve(rank, reqs)
}

// Stop shuts the inferer down after all repeat iterations complete. Issued
// once by the same elected solver that started it.
func (ip *InfererPool) Stop(rank int) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	reqs, running := ip.reqs[rank]
	if !running {
		panic(fmt.Sprintf("stop of inferer %d, which is not running", rank))
	}
	close(reqs)
	delete(ip.reqs, rank)
}

// Wait blocks until every stopped inferer goroutine has drained and exited.
func (ip *InfererPool) Wait() {
	ip.wg.Wait()
}

func (ip *InfererPool) serve(rank int, reqs chan *exchange) {
	defer ip.wg.Done()
	for ex := range reqs {
		// Ownership of the buffers passes to this goroutine here; the
		// solver is blocked on its first fence until we acknowledge.
		close(ex.taken)
		ex.done <- ip.Model.Infer(ex.solverRank, ex.states, ex.corrs)
	}
}

// submit hands an exchange to the inferer owning rank. Exchanging with an
// inferer that was never started means the start handshake was skipped,
// which is a protocol violation.
func (ip *InfererPool) submit(rank int, ex *exchange) {
	ip.mu.RLock()
	reqs, running := ip.reqs[rank]
	ip.mu.RUnlock()
	if !running {
		panic(fmt.Sprintf("exchange with inferer %d, which is not running", rank))
	}
	reqs <- ex
}
