// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-civer/pkg/civer/encoder"
	"github.com/consensys/go-civer/pkg/civer/ingest"
	"github.com/consensys/go-civer/pkg/civer/report"
	"github.com/consensys/go-civer/pkg/civer/smt/enumsolver"
	"github.com/consensys/go-civer/pkg/civer/verifier"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] tree.json",
	Short: "Discharge tag, postcondition and weak-safety obligations over a constraint tree.",
	Long: `Runs the compositional verifier over a constraint tree dumped by the front-end
(tree.json: signals, constraints and annotations per template instance) and reports
VERIFIED/FAILED/UNKNOWN for each enabled obligation.`,
	Args: cobra.ExactArgs(1),
	Run:  runVerifyCmd,
}

//nolint:errcheck
func init() {
	verifyCmd.Flags().String("prime", "", "field prime p (decimal string); defaults to the BN254 scalar field")
	verifyCmd.Flags().Uint64("verification-timeout", 5000, "per-obligation solver timeout in milliseconds")
	verifyCmd.Flags().Bool("check-tags", true, "discharge the tag-correctness obligation")
	verifyCmd.Flags().Bool("check-postconditions", true, "discharge the postcondition obligation")
	verifyCmd.Flags().Bool("check-safety", true, "discharge the weak-safety obligation")
	verifyCmd.Flags().Bool("add-tags-info", false, "assume declared tag postconditions in the postcondition/safety obligations")
	verifyCmd.Flags().Bool("add-postconditions-info", false, "assume declared postconditions in the safety obligation")
	verifyCmd.Flags().Bool("apply-deduction-assigned", false, "enable the non-negative-lower-bound strengthening in bound propagation's Rule B")
	verifyCmd.Flags().Int64("quotient-domain-limit", encoder.DefaultQuotientDomainLimit, "quotient-variable domain size above which an obligation reports TOO_BIG")
	verifyCmd.Flags().Int("max-rounds", 0, "cap on frontier-expansion rounds per node (0 = unbounded)")
	verifyCmd.Flags().String("civer-file", "", "append-only human-readable per-node trace output path")
	verifyCmd.Flags().String("initial-constraints-file", "", "JSON dump of constraint_id -> template_name")
	verifyCmd.Flags().String("structure-file", "", "JSON dump of the constraint tree's shape")
	verifyCmd.Flags().Uint64("enum-max-domain", 1_000_000, "bounded-enumeration solver's combination cap before giving up with Unknown")

	rootCmd.AddCommand(verifyCmd)
}

func runVerifyCmd(cmd *cobra.Command, args []string) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}

	prime := fr.Modulus()

	if primeStr := GetString(cmd, "prime"); primeStr != "" {
		var ok bool

		prime, ok = new(big.Int).SetString(primeStr, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "civer: --prime %q is not a decimal integer\n", primeStr)
			os.Exit(1)
		}
	}

	root, err := ingest.ReadFile(args[0], prime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg := verifier.Config{
		Prime:                  prime,
		Timeout:                time.Duration(GetUint64(cmd, "verification-timeout")) * time.Millisecond,
		CheckTags:              GetFlag(cmd, "check-tags"),
		CheckPostconditions:    GetFlag(cmd, "check-postconditions"),
		CheckSafety:            GetFlag(cmd, "check-safety"),
		AddTagsInfo:            GetFlag(cmd, "add-tags-info"),
		AddPostconditionsInfo:  GetFlag(cmd, "add-postconditions-info"),
		ApplyDeductionAssigned: GetFlag(cmd, "apply-deduction-assigned"),
		QuotientDomainLimit:    GetInt64(cmd, "quotient-domain-limit"),
		MaxRounds:              GetInt(cmd, "max-rounds"),
	}

	solver := enumsolver.NewSolver(GetUint64(cmd, "enum-max-domain"))

	start := time.Now()
	reports := verifier.New(solver, cfg).Verify(root)
	elapsed := time.Since(start)

	res := report.Results{Root: root, Reports: reports, Elapsed: elapsed}

	if path := GetString(cmd, "civer-file"); path != "" {
		if err := writeCiverFile(path, res); err != nil {
			fmt.Fprintf(os.Stderr, "civer: failed to write civer-file: %v\n", err)
			os.Exit(1)
		}
	}

	if path := GetString(cmd, "initial-constraints-file"); path != "" || GetString(cmd, "structure-file") != "" {
		structure, owners := report.BuildStructure(root, report.Timing{Total: elapsed.Seconds()})

		if path != "" {
			if err := report.WriteInitialConstraintsFile(path, owners); err != nil {
				fmt.Fprintf(os.Stderr, "civer: failed to write initial-constraints-file: %v\n", err)
				os.Exit(1)
			}
		}

		if path := GetString(cmd, "structure-file"); path != "" {
			if err := report.WriteStructureFile(path, structure); err != nil {
				fmt.Fprintf(os.Stderr, "civer: failed to write structure-file: %v\n", err)
				os.Exit(1)
			}
		}
	}

	report.PrintSummary(os.Stdout, res)
}

func writeCiverFile(path string, res report.Results) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer f.Close()

	return report.WriteCiverFile(f, res)
}
