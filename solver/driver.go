package solver

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/notargets/gorad/InputParameters"
	"github.com/notargets/gorad/coupling"
	"github.com/notargets/gorad/physics"
	"github.com/notargets/gorad/topology"
	"github.com/notargets/gorad/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RadiationDriver runs the block-parallel radiation benchmark. Two mutually
// exclusive regimes, chosen by configuration: fully-local, where column
// blocks are spread over a pool of goroutines inside this process, and
// coupled, where every solver rank owns one block and exchanges it with a
// paired inferer over a two-fence channel session.
type RadiationDriver struct {
	Params *InputParameters.RadiationParameters
	Shape  physics.Shape
	Atmos  *physics.Atmosphere
	Flux   *physics.FluxProfiles
	Engine physics.FluxSolver

	// Coupled mode only
	Topo     *topology.ProcessTopology
	Pool     *coupling.InfererPool
	Sessions []*coupling.ChannelSession

	// Fully-local mode only
	Blocks *utils.BlockMap

	// Fully-local worker count, capped at the block count
	ParallelDegree int

	IterTimes []float64 // Wall seconds per repeat iteration
	Verbose   bool
}

func NewRadiationDriver(rp *InputParameters.RadiationParameters,
	engine physics.FluxSolver, model coupling.Inferer) (rd *RadiationDriver, err error) {
	if err = rp.Validate(); err != nil {
		return
	}
	shape := physics.Shape{
		NLev:     rp.NLevels,
		NSWBand:  rp.NSWBands,
		NLWBand:  rp.NLWBands,
		NAerosol: rp.NAerosols,
	}
	rd = &RadiationDriver{
		Params: rp,
		Shape:  shape,
		Atmos:  physics.NewSyntheticAtmosphere(shape, rp.NColumns),
		Flux:   physics.NewFluxProfiles(shape, rp.NColumns),
		Engine: engine,
	}
	if rp.Coupled {
		if model == nil {
			err = fmt.Errorf("coupled mode requires an inference model")
			return
		}
		if rd.Topo, err = topology.NewProcessTopology(rp.NProc, rp.SolverProcs); err != nil {
			return
		}
		rd.Pool = coupling.NewInfererPool(rd.Topo, model)
		rd.Sessions = make([]*coupling.ChannelSession, rp.SolverProcs)
		for _, r := range rd.Topo.SolverRanks() {
			rd.Sessions[r] = coupling.NewChannelSession(r, rd.Topo, rd.Pool, shape, rp.BlockSize)
		}
	} else {
		istart, iend := rp.IStartCol, rp.IEndCol
		if istart == 0 {
			istart = 1
		}
		if iend == 0 {
			iend = rp.NColumns
		}
		rd.Blocks = utils.NewBlockMap(istart, iend, rp.BlockSize)
		rd.ParallelDegree = rp.ParallelDegree
		if rd.ParallelDegree <= 0 {
			rd.ParallelDegree = runtime.NumCPU()
		}
		if rd.ParallelDegree > rd.Blocks.NBlocks() {
			rd.ParallelDegree = rd.Blocks.NBlocks()
		}
	}
	return
}

// SetAtmosphere replaces the synthetic profiles with externally supplied
// ones, e.g. read from an input file by the enclosing program.
func (rd *RadiationDriver) SetAtmosphere(atm *physics.Atmosphere) {
	if atm.NCol != rd.Params.NColumns || atm.Shape != rd.Shape {
		panic(fmt.Sprintf("atmosphere of %d columns does not match the configured %d",
			atm.NCol, rd.Params.NColumns))
	}
	rd.Atmos = atm
}

// Run executes the configured number of repeat iterations. In coupled mode
// the inferer start handshakes are issued once before the first iteration
// and the stop handshakes once after the last, while connect/disconnect
// happen every iteration.
func (rd *RadiationDriver) Run() (err error) {
	rd.PrintInitialization()
	if rd.Params.Coupled {
		for _, r := range rd.Topo.SolverRanks() {
			if rd.Topo.IsStarter(r) {
				rd.Pool.Start(rd.Topo.InfererRank(r))
			}
		}
	}
	rd.IterTimes = make([]float64, 0, rd.Params.NRepeats)
	for rep := 0; rep < rd.Params.NRepeats; rep++ {
		start := time.Now()
		if err = rd.RunIteration(); err != nil {
			err = fmt.Errorf("iteration %d: %w", rep, err)
			break
		}
		rd.IterTimes = append(rd.IterTimes, time.Since(start).Seconds())
		if rd.Verbose {
			fmt.Printf("iteration %4d complete in %10.6f sec\n", rep, rd.IterTimes[rep])
		}
	}
	if rd.Params.Coupled {
		for _, r := range rd.Topo.SolverRanks() {
			if rd.Topo.IsStarter(r) {
				rd.Pool.Stop(rd.Topo.InfererRank(r))
			}
		}
		rd.Pool.Wait()
	}
	if err == nil {
		rd.PrintTimings()
	}
	return
}

// RunIteration computes one full pass over the column domain. Fluxes are
// reset first so repeated iterations over identical inputs are identical.
func (rd *RadiationDriver) RunIteration() error {
	rd.Flux.Reset()
	if rd.Params.Coupled {
		return rd.runCoupled()
	}
	return rd.runLocal()
}

// runLocal spreads the blocks over a fixed pool of ParallelDegree workers.
// Each block owns disjoint columns and disjoint flux rows, so no locking is
// needed.
func (rd *RadiationDriver) runLocal() error {
	var (
		nblock = rd.Blocks.NBlocks()
		errs   = make([]error, nblock)
		work   = make(chan int, nblock)
		wg     = sync.WaitGroup{}
	)
	for n := 0; n < nblock; n++ {
		work <- n
	}
	close(work)
	for w := 0; w < rd.ParallelDegree; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range work {
				errs[n] = rd.Engine.ComputeRadiativeTransfer(rd.Blocks.Blocks[n], rd.Atmos, rd.Flux)
			}
		}()
	}
	wg.Wait()
	for n, err := range errs {
		if err != nil {
			return fmt.Errorf("block %v: %w", rd.Blocks.Blocks[n], err)
		}
	}
	return nil
}

// runCoupled runs every solver rank concurrently, one block per rank. The
// exchange protocol per rank and iteration is fixed: connect, put the block,
// fence, radiation call, fence, validate, blend, disconnect. The two fences
// bracket the physics so the inference runs concurrently with it without
// racing on the exchanged buffers.
func (rd *RadiationDriver) runCoupled() error {
	var (
		nsolver = rd.Topo.NSolver
		errs    = make([]error, nsolver)
		wg      = sync.WaitGroup{}
	)
	for _, r := range rd.Topo.SolverRanks() {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = rd.solverIteration(r)
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			return fmt.Errorf("solver rank %d: %w", r, err)
		}
	}
	return nil
}

func (rd *RadiationDriver) solverIteration(rank int) (err error) {
	var (
		cs  = rd.Sessions[rank]
		blk = utils.CoupledBlock(rank, rd.Params.BlockSize)
	)
	cs.Connect(blk.NCol(), blk.NCol())
	for col := blk.Start; col < blk.End; col++ {
		cs.PutColumn(rd.Atmos, col)
	}
	if err = cs.Fence(); err != nil {
		return
	}
	if err = rd.Engine.ComputeRadiativeTransfer(blk, rd.Atmos, rd.Flux); err != nil {
		return
	}
	if err = cs.Fence(); err != nil {
		return
	}
	corrs := cs.Corrections()
	for i, cr := range corrs {
		if ferr := cr.CheckFinite(); ferr != nil {
			if rd.Params.Strict {
				return fmt.Errorf("column %d: %w", blk.Start+i, ferr)
			}
			fmt.Printf("warning: rank %d column %d: %s\n", rank, blk.Start+i, ferr)
		}
	}
	rd.Flux.ApplyCorrections(blk, corrs)
	cs.Disconnect()
	return
}

// Shutdown destroys the channel sessions, including ones left mid-exchange
// by a failed run. The driver must not run again afterward.
func (rd *RadiationDriver) Shutdown() {
	for _, cs := range rd.Sessions {
		cs.Close()
	}
	rd.Sessions = nil
}

func (rd *RadiationDriver) PrintInitialization() {
	rd.Params.Print()
	if rd.Params.Coupled {
		fmt.Printf("Coupled over %d solver ranks, block size %d\n",
			rd.Topo.NSolver, rd.Params.BlockSize)
	} else {
		fmt.Printf("Fully-local over %d blocks of up to %d columns\n",
			rd.Blocks.NBlocks(), rd.Params.BlockSize)
	}
}

func (rd *RadiationDriver) PrintTimings() {
	if len(rd.IterTimes) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(rd.IterTimes, nil)
	if len(rd.IterTimes) == 1 {
		std = 0
	}
	fmt.Printf("%d iterations: mean %10.6f sec, stddev %10.6f, min %10.6f, max %10.6f\n",
		len(rd.IterTimes), mean, std, floats.Min(rd.IterTimes), floats.Max(rd.IterTimes))
}
