/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/notargets/gorad/InputParameters"
	"github.com/notargets/gorad/coupling"
	"github.com/notargets/gorad/physics"
	"github.com/notargets/gorad/solver"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

// BenchCmd represents the bench command
var BenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the coupled radiation benchmark loop",
	Long: `
Runs the radiation solver over the column domain for a configured number of
repeat iterations, optionally coupled to the inference worker pool, and
reports per-iteration timing.

gorad bench -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		bp := &BenchParams{}
		if bp.ParamFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		bp.Graph, _ = cmd.Flags().GetBool("graph")
		bp.Verbose, _ = cmd.Flags().GetBool("verbose")
		bp.Profile, _ = cmd.Flags().GetBool("profile")
		ip := processBenchInput(bp)
		RunBench(bp, ip)
	},
}

type BenchParams struct {
	ParamFile string
	Graph     bool
	Verbose   bool
	Profile   bool
}

func init() {
	rootCmd.AddCommand(BenchCmd)
	BenchCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file with run parameters")
	BenchCmd.Flags().BoolP("graph", "g", false, "display the final flux profiles")
	BenchCmd.Flags().BoolP("verbose", "v", false, "print per-iteration timing")
	BenchCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
}

func processBenchInput(bp *BenchParams) (ip *InputParameters.RadiationParameters) {
	ip = &InputParameters.RadiationParameters{
		Title:     "gorad benchmark",
		NColumns:  256,
		NLevels:   60,
		NSWBands:  14,
		NLWBands:  16,
		NAerosols: 4,
		BlockSize: 32,
		NRepeats:  3,
		Coupled:   true,
		NProc:     12,
		// With 8 solvers and 4 inferers, each inferer serves two solvers
		SolverProcs: 8,
	}
	if len(bp.ParamFile) != 0 {
		var (
			data []byte
			err  error
		)
		if data, err = os.ReadFile(bp.ParamFile); err != nil {
			fmt.Printf("error reading input parameters file: %s\n", err.Error())
			os.Exit(1)
		}
		if err = ip.Parse(data); err != nil {
			fmt.Printf("error parsing input parameters file: %s\n", err.Error())
			os.Exit(1)
		}
	}
	if err := ip.Validate(); err != nil {
		fmt.Printf("configuration error: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

func RunBench(bp *BenchParams, ip *InputParameters.RadiationParameters) {
	if bp.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	rd, err := solver.NewRadiationDriver(ip, physics.NewGraySolver(), coupling.NewLapseRateInferer())
	if err != nil {
		fmt.Printf("configuration error: %s\n", err.Error())
		os.Exit(1)
	}
	rd.Verbose = bp.Verbose
	if err = rd.Run(); err != nil {
		rd.Shutdown()
		fmt.Printf("run failed: %s\n", err.Error())
		os.Exit(1)
	}
	if len(ip.OutputFile) != 0 {
		w := &solver.YAMLFluxWriter{Title: ip.Title}
		if err = w.WriteFluxes(ip.OutputFile, rd.Flux); err != nil {
			fmt.Printf("output failed: %s\n", err.Error())
			os.Exit(1)
		}
		fmt.Printf("fluxes written to %s\n", ip.OutputFile)
	}
	rd.Shutdown()
	if bp.Graph {
		// Blocks displaying the chart until the process is killed
		rd.PlotFluxes()
	}
}
