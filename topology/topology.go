package topology

import "fmt"

type Role uint8

const (
	Solver Role = iota
	Inferer
)

func (r Role) String() string {
	if r == Solver {
		return "solver"
	}
	return "inferer"
}

// ProcessTopology splits the global process group into a solver group
// occupying ranks [0, NSolver) and an inferer group occupying ranks
// [NSolver, NProc). Each solver rank is paired with exactly one inferer
// rank for the whole run; inferer load is spread evenly over the solver
// ranks that share it. Construct once at startup and pass by reference.
type ProcessTopology struct {
	NProc    int // Total process count
	NSolver  int // Ranks [0, NSolver) run the radiation solver
	NInferer int // Ranks [NSolver, NProc) run the inference model
}

func NewProcessTopology(nproc, nsolver int) (pt *ProcessTopology, err error) {
	if nsolver <= 0 {
		err = fmt.Errorf("solver group size must be positive, have %d", nsolver)
		return
	}
	ninferer := nproc - nsolver
	if ninferer <= 0 {
		err = fmt.Errorf("no inferer capacity: %d processes, %d solvers leaves %d inferers",
			nproc, nsolver, ninferer)
		return
	}
	pt = &ProcessTopology{
		NProc:    nproc,
		NSolver:  nsolver,
		NInferer: ninferer,
	}
	return
}

func (pt *ProcessTopology) Role(rank int) Role {
	if rank < 0 || rank >= pt.NProc {
		panic(fmt.Sprintf("rank %d out of bounds [0,%d)", rank, pt.NProc))
	}
	if rank < pt.NSolver {
		return Solver
	}
	return Inferer
}

// InfererRank returns the inferer rank paired with solver rank r. The
// mapping is a pure function of r, stable for the process lifetime.
func (pt *ProcessTopology) InfererRank(r int) int {
	pt.checkSolverRank(r)
	return r%pt.NInferer + pt.NSolver
}

// LocalIndex orders the solver ranks sharing one inferer; the solver with
// LocalIndex == 0 is elected to issue the start/stop handshake for its
// paired inferer.
func (pt *ProcessTopology) LocalIndex(r int) int {
	pt.checkSolverRank(r)
	return r / pt.NInferer
}

func (pt *ProcessTopology) IsStarter(r int) bool {
	return pt.LocalIndex(r) == 0
}

func (pt *ProcessTopology) SolverRanks() (ranks []int) {
	ranks = make([]int, pt.NSolver)
	for r := 0; r < pt.NSolver; r++ {
		ranks[r] = r
	}
	return
}

func (pt *ProcessTopology) InfererRanks() (ranks []int) {
	ranks = make([]int, pt.NInferer)
	for i := 0; i < pt.NInferer; i++ {
		ranks[i] = pt.NSolver + i
	}
	return
}

func (pt *ProcessTopology) checkSolverRank(r int) {
	if r < 0 || r >= pt.NSolver {
		panic(fmt.Sprintf("rank %d is not a solver rank, solver group is [0,%d)", r, pt.NSolver))
	}
}
