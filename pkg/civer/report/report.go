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

// Package report emits the three artefacts a civer run produces:
// the append-only civer_file trace, the structure_file/initial_constraints_file
// JSON dumps, and the stdout summary. None of this package feeds back into
// verification; it only reads the verifier's already-settled results.
package report

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/encoder"
	"github.com/consensys/go-civer/pkg/civer/tree"
	"github.com/consensys/go-civer/pkg/civer/verifier"
)

// Results bundles everything the three emitters need: the tree that was
// walked, the verifier's per-node reports keyed by node_id, and how long
// the whole run took.
type Results struct {
	Root    *tree.Node
	Reports map[tree.NodeID]verifier.NodeReport
	Elapsed time.Duration
}

// reportFor looks up a node's settled report, logging (not panicking) if
// the verifier never visited it -- which would itself be a verifier bug,
// since every reachable node is visited post-order, but the report layer
// must never abort a run over a missing entry.
func (r Results) reportFor(n *tree.Node) (verifier.NodeReport, bool) {
	rep, ok := r.Reports[n.ID]
	if !ok {
		log.Warnf("civer: no report recorded for node %s (id %d)", n.DisplayName, n.ID)
	}

	return rep, ok
}

func verdictLine(name string, v tree.PossibleResult) string {
	return fmt.Sprintf("  %-16s %s", name, v)
}

// formatCounterexample renders a FAILED obligation's model as
// "Signal <id>: <value>" lines, sorted by signal id for deterministic
// output.
func formatCounterexample(model map[ast.SignalID]*big.Int) []string {
	ids := make([]ast.SignalID, 0, len(model))
	for s := range model {
		ids = append(ids, s)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]string, 0, len(ids))
	for _, s := range ids {
		lines = append(lines, fmt.Sprintf("    Signal %d: %s", s, model[s].String()))
	}

	return lines
}

func obligationCounterexample(rep verifier.NodeReport, ob encoder.Obligation) []string {
	model, ok := rep.Counterexamples[ob]
	if !ok {
		return nil
	}

	return formatCounterexample(model)
}

// WriteCiverFile appends one block per unique node to w: its name, signal
// and constraint counts, elapsed time, round count, the verdict of every
// enabled obligation, and -- when FAILED -- its counterexample.
func WriteCiverFile(w io.Writer, res Results) error {
	var walk func(n *tree.Node) error

	visited := make(map[tree.NodeID]bool)

	walk = func(n *tree.Node) error {
		if visited[n.ID] {
			return nil
		}

		visited[n.ID] = true

		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}

		rep, ok := res.reportFor(n)
		if !ok {
			return nil
		}

		if err := writeNodeBlock(w, n, rep); err != nil {
			return err
		}

		return nil
	}

	return walk(res.Root)
}

func writeNodeBlock(w io.Writer, n *tree.Node, rep verifier.NodeReport) error {
	lines := []string{
		fmt.Sprintf("== %s (node_id %d) ==", n.DisplayName, n.ID),
		fmt.Sprintf("  signals: %d inputs, %d outputs, %d total", n.NumberInputs, n.NumberOutputs, n.NumberSignals),
		fmt.Sprintf("  constraints: %d", len(n.Constraints)),
		fmt.Sprintf("  rounds: %d", rep.Rounds),
		fmt.Sprintf("  elapsed: %s", rep.Elapsed),
		verdictLine("tags", rep.Verdicts.Tags),
		verdictLine("postconditions", rep.Verdicts.Postconditions),
		verdictLine("safety", rep.Verdicts.Safety),
	}

	lines = append(lines, obligationCounterexample(rep, encoder.ObligationTags)...)
	lines = append(lines, obligationCounterexample(rep, encoder.ObligationPostconditions)...)
	lines = append(lines, obligationCounterexample(rep, encoder.ObligationSafety)...)

	lines = append(lines, "")

	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}

	return nil
}
