package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type RadiationParameters struct {
	Title          string `yaml:"Title"`
	NColumns       int    `yaml:"NColumns"`
	NLevels        int    `yaml:"NLevels"`
	NSWBands       int    `yaml:"NSWBands"`
	NLWBands       int    `yaml:"NLWBands"`
	NAerosols      int    `yaml:"NAerosols"`
	BlockSize      int    `yaml:"BlockSize"`
	NRepeats       int    `yaml:"NRepeats"`
	Coupled        bool   `yaml:"Coupled"`
	NProc          int    `yaml:"NProc"`       // Total process count, coupled mode
	SolverProcs    int    `yaml:"SolverProcs"` // Solver group size, coupled mode
	IStartCol      int    `yaml:"IStartCol"`   // Fully-local sub-range, 0 = 1
	IEndCol        int    `yaml:"IEndCol"`     // Fully-local sub-range, 0 = NColumns
	Strict         bool   `yaml:"Strict"`      // Escalate non-finite corrections to fatal
	ParallelDegree int    `yaml:"ParallelDegree"`
	OutputFile     string `yaml:"OutputFile"`
}

func (rp *RadiationParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, rp)
}

// Validate reports the first configuration error. All configuration errors
// are fatal and surface before any iteration runs.
func (rp *RadiationParameters) Validate() error {
	if rp.NColumns <= 0 {
		return fmt.Errorf("NColumns must be positive, have %d", rp.NColumns)
	}
	if rp.NLevels <= 0 {
		return fmt.Errorf("NLevels must be positive, have %d", rp.NLevels)
	}
	if rp.NSWBands <= 0 {
		return fmt.Errorf("NSWBands must be positive, have %d", rp.NSWBands)
	}
	if rp.NLWBands <= 0 {
		return fmt.Errorf("NLWBands must be positive, have %d", rp.NLWBands)
	}
	if rp.NAerosols < 0 {
		return fmt.Errorf("NAerosols must be non-negative, have %d", rp.NAerosols)
	}
	if rp.BlockSize <= 0 {
		return fmt.Errorf("BlockSize must be positive, have %d", rp.BlockSize)
	}
	if rp.NRepeats <= 0 {
		return fmt.Errorf("NRepeats must be positive, have %d", rp.NRepeats)
	}
	if rp.Coupled {
		if rp.NProc-rp.SolverProcs <= 0 {
			return fmt.Errorf("no inferer capacity: NProc %d, SolverProcs %d",
				rp.NProc, rp.SolverProcs)
		}
		if rp.SolverProcs*rp.BlockSize > rp.NColumns {
			return fmt.Errorf("coupled blocks [1,%d] exceed the %d column domain",
				rp.SolverProcs*rp.BlockSize, rp.NColumns)
		}
	}
	if rp.IStartCol != 0 || rp.IEndCol != 0 {
		if rp.IStartCol < 1 || rp.IEndCol > rp.NColumns || rp.IEndCol < rp.IStartCol {
			return fmt.Errorf("column sub-range [%d,%d] invalid for %d columns",
				rp.IStartCol, rp.IEndCol, rp.NColumns)
		}
	}
	return nil
}

func (rp *RadiationParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("[%d x %d]\t\t= Columns x Levels\n", rp.NColumns, rp.NLevels)
	fmt.Printf("[%d]\t\t\t= Block Size\n", rp.BlockSize)
	fmt.Printf("[%d]\t\t\t= Repeat Iterations\n", rp.NRepeats)
	if rp.Coupled {
		fmt.Printf("[coupled]\t\t= Mode, %d solver + %d inferer processes\n",
			rp.SolverProcs, rp.NProc-rp.SolverProcs)
	} else {
		fmt.Printf("[fully-local]\t\t= Mode\n")
	}
	fmt.Printf("[%v]\t\t\t= Strict correction checking\n", rp.Strict)
}
