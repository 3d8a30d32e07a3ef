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
	"io/ioutil"
	"os"
	"runtime"

	"github.com/invgeo/tomograd/InversionParameters"
	"github.com/invgeo/tomograd/inversion"
	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/types"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

type InvertRun struct {
	Parfile    string
	Output     string
	NRanks     int
	CPUProfile bool
}

// invertCmd represents the invert command
var invertCmd = &cobra.Command{
	Use:   "invert",
	Short: "Run an inversion described by a YAML Parfile",
	Long: `
Runs a capacitance (ect), gravity, magnetic or joint inversion over a group
of cooperating ranks. Observations are synthesized from a central-block
model; the recovered model is written as "x y z value" lines.

tomograd invert -p parfile.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			ir  = &InvertRun{}
		)
		if ir.Parfile, err = cmd.Flags().GetString("parfile"); err != nil {
			panic(err)
		}
		ir.Output, _ = cmd.Flags().GetString("output")
		ir.NRanks, _ = cmd.Flags().GetInt("nranks")
		ir.CPUProfile, _ = cmd.Flags().GetBool("cpuprofile")
		if ir.NRanks < 1 {
			ir.NRanks = runtime.NumCPU()
		}
		ip := processInput(ir)
		if ir.CPUProfile {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		if err = RunInvert(ir, ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(invertCmd)
	invertCmd.Flags().StringP("parfile", "p", "", "YAML Parfile describing the inversion")
	invertCmd.Flags().StringP("output", "o", "model.out", "output model file")
	invertCmd.Flags().IntP("nranks", "n", 0, "number of ranks (0 = number of CPUs)")
	invertCmd.Flags().Bool("cpuprofile", false, "write a CPU profile of the run")
}

func processInput(ir *InvertRun) (ip *InversionParameters.Parameters) {
	var (
		err error
	)
	if len(ir.Parfile) == 0 {
		err = fmt.Errorf("must supply a Parfile (-p, --parfile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Synthetic gravity block"
Problem: gravity
Gravity:
  Nx: 16
  Ny: 16
  Nz: 8
  Dx: 100
  Dy: 100
  Dz: 50
  DepthWeightingType: 1
  Beta: 2.0
  Z0: 12.5
  Damping: 1.0e-12
  MaxIterations: 100
  Tolerance: 1.0e-8
########################################
`
		fmt.Printf("example Parfile:%s", exampleFile)
		os.Exit(1)
	}
	data, err := ioutil.ReadFile(ir.Parfile)
	if err != nil {
		fmt.Printf("error reading Parfile: %s\n", err.Error())
		os.Exit(1)
	}
	ip = &InversionParameters.Parameters{}
	if err = ip.Parse(data); err != nil {
		fmt.Printf("error parsing Parfile: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

// RunInvert validates the parameters once, then hands the immutable value to
// every rank of the group.
func RunInvert(ir *InvertRun, ip *InversionParameters.Parameters) error {
	if err := ip.Validate(ir.NRanks); err != nil {
		return err
	}
	ip.Print()
	fmt.Printf("[%d]\t\t\t= Ranks\n", ir.NRanks)

	return parallel.Run(ir.NRanks, func(c parallel.Communicator) error {
		var (
			m   *inversion.Method
			err error
		)
		switch ip.ProblemType() {
		case types.P_ECT:
			m, err = inversion.ECTMethod(c, ip.ECT)
		case types.P_Gravity:
			m, err = inversion.GravityMethod(c, ip.Gravity)
		case types.P_Magnetic:
			m, err = inversion.MagneticMethod(c, ip.Magnetic)
		case types.P_Joint:
			return runJoint(c, ir, ip)
		}
		if err != nil {
			return err
		}
		stats, err := inversion.RunMethod(c, m)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			fmt.Printf("%s: %d iterations, residual %.3e -> %.3e\n",
				m.Name, stats.Iterations, stats.InitialResidual, stats.FinalResidual)
		}
		return m.Arrays.WriteModel(m.Grid, ir.Output)
	})
}

func runJoint(c parallel.Communicator, ir *InvertRun, ip *InversionParameters.Parameters) error {
	gm, err := inversion.GravityMethod(c, ip.Gravity)
	if err != nil {
		return err
	}
	mm, err := inversion.MagneticMethod(c, ip.Magnetic)
	if err != nil {
		return err
	}
	if _, err = inversion.RunJoint(c, gm, mm, ip.NPasses); err != nil {
		return err
	}
	if err = gm.Arrays.WriteModel(gm.Grid, ir.Output+".grav"); err != nil {
		return err
	}
	return mm.Arrays.WriteModel(mm.Grid, ir.Output+".mag")
}
