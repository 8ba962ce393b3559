package solver

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/notargets/gorad/physics"
)

// FluxWriter is the output sink collaborator. File naming and format are the
// implementation's concern; the driver only hands over the finished fluxes.
type FluxWriter interface {
	WriteFluxes(path string, flux *physics.FluxProfiles) error
}

// YAMLFluxWriter dumps the flux profiles as a YAML document, one row per
// column on half levels.
type YAMLFluxWriter struct {
	Title string
}

type fluxDocument struct {
	Title   string      `yaml:"Title"`
	NCol    int         `yaml:"NColumns"`
	NHalf   int         `yaml:"NHalfLevels"`
	SWUp    [][]float64 `yaml:"SWUp"`
	SWDn    [][]float64 `yaml:"SWDn"`
	LWUp    [][]float64 `yaml:"LWUp"`
	LWDn    [][]float64 `yaml:"LWDn"`
}

func (w *YAMLFluxWriter) WriteFluxes(path string, flux *physics.FluxProfiles) (err error) {
	doc := fluxDocument{
		Title: w.Title,
		NCol:  flux.NCol,
		NHalf: flux.Shape.NHalf(),
		SWUp:  rowsOf(flux.SWUp.RawMatrix().Data, flux.NCol, flux.Shape.NHalf()),
		SWDn:  rowsOf(flux.SWDn.RawMatrix().Data, flux.NCol, flux.Shape.NHalf()),
		LWUp:  rowsOf(flux.LWUp.RawMatrix().Data, flux.NCol, flux.Shape.NHalf()),
		LWDn:  rowsOf(flux.LWDn.RawMatrix().Data, flux.NCol, flux.Shape.NHalf()),
	}
	var data []byte
	if data, err = yaml.Marshal(&doc); err != nil {
		return fmt.Errorf("marshaling fluxes: %w", err)
	}
	if err = os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return
}

func rowsOf(data []float64, nrow, ncol int) (rows [][]float64) {
	rows = make([][]float64, nrow)
	for r := 0; r < nrow; r++ {
		rows[r] = data[r*ncol : (r+1)*ncol]
	}
	return
}
