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
package report

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/encoder"
	"github.com/consensys/go-civer/pkg/civer/tree"
	"github.com/consensys/go-civer/pkg/civer/verifier"
)

func leaf(id tree.NodeID, name string, nConstraints int) *tree.Node {
	cs := make([]tree.Constraint, nConstraints)
	for i := range cs {
		cs[i] = tree.Constraint{Name: name}
	}

	return &tree.Node{TemplateName: name, DisplayName: name, ID: id, Constraints: cs}
}

func TestBuildStructurePreOrderAndConstraintIDs(t *testing.T) {
	child0 := leaf(1, "A", 2)
	child1 := leaf(2, "B", 1)
	root := leaf(0, "Root", 1)
	root.Children = []*tree.Node{child0, child1}

	structure, owners := BuildStructure(root, Timing{Total: 1.5})

	if len(structure.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(structure.Nodes))
	}

	if structure.Nodes[0].NodeID != 0 || len(structure.Nodes[0].Constraints) != 1 {
		t.Fatalf("root entry malformed: %+v", structure.Nodes[0])
	}

	if got, want := structure.Nodes[0].Successors, []int{1, 2}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("root successors = %v, want %v", got, want)
	}

	if len(structure.Nodes[1].Constraints) != 2 {
		t.Fatalf("child A constraints = %d, want 2", len(structure.Nodes[1].Constraints))
	}

	// Constraint ids are assigned sequentially across the whole pre-order
	// walk: root's single constraint is id 0, child A's two are 1 and 2,
	// child B's one is 3.
	if len(owners) != 4 {
		t.Fatalf("owners = %d entries, want 4", len(owners))
	}

	if owners[0] != "Root" || owners[1] != "A" || owners[2] != "A" || owners[3] != "B" {
		t.Fatalf("owners = %v", owners)
	}

	if structure.Timing.Total != 1.5 {
		t.Fatalf("timing.total = %v, want 1.5", structure.Timing.Total)
	}
}

func TestBuildStructureLocalAndStructuralEquivalencyMatch(t *testing.T) {
	// Two children sharing the same node_id (structurally identical
	// template instances) must land in the same equivalence class, and
	// local/structural equivalency must report the identical classes.
	child0 := leaf(5, "Shared", 0)
	child1 := leaf(5, "Shared", 0)
	root := leaf(0, "Root", 0)
	root.Children = []*tree.Node{child0, child1}

	structure, _ := BuildStructure(root, Timing{})

	if len(structure.LocalEquivalency) != len(structure.StructuralEquivalency) {
		t.Fatalf("local/structural equivalency class counts differ")
	}

	var sharedClass []int

	for _, class := range structure.LocalEquivalency {
		if len(class) == 2 {
			sharedClass = class
		}
	}

	if sharedClass == nil {
		t.Fatal("expected an equivalence class containing both shared-id children")
	}

	if sharedClass[0] != 1 || sharedClass[1] != 2 {
		t.Fatalf("shared class = %v, want [1 2]", sharedClass)
	}
}

func TestWriteStructureFileAndInitialConstraintsFileRoundTrip(t *testing.T) {
	root := leaf(0, "Root", 1)
	structure, owners := BuildStructure(root, Timing{Total: 0.25})

	dir := t.TempDir()
	structPath := filepath.Join(dir, "structure.json")
	constraintsPath := filepath.Join(dir, "constraints.json")

	if err := WriteStructureFile(structPath, structure); err != nil {
		t.Fatalf("WriteStructureFile: %v", err)
	}

	if err := WriteInitialConstraintsFile(constraintsPath, owners); err != nil {
		t.Fatalf("WriteInitialConstraintsFile: %v", err)
	}

	data, err := os.ReadFile(structPath)
	if err != nil {
		t.Fatalf("reading structure file: %v", err)
	}

	if !strings.Contains(string(data), `"node_id": 0`) {
		t.Fatalf("structure file missing node_id: %s", data)
	}

	data, err = os.ReadFile(constraintsPath)
	if err != nil {
		t.Fatalf("reading constraints file: %v", err)
	}

	if !strings.Contains(string(data), "Root") {
		t.Fatalf("constraints file missing template name: %s", data)
	}
}

func reportsFor(root *tree.Node, verdicts verifier.Verdicts) map[tree.NodeID]verifier.NodeReport {
	return map[tree.NodeID]verifier.NodeReport{
		root.ID: {Node: root, Verdicts: verdicts, Rounds: 1},
	}
}

func TestPrintSummaryCountsVerifiedSafety(t *testing.T) {
	root := leaf(0, "Root", 3)
	res := Results{
		Root:    root,
		Reports: reportsFor(root, verifier.Verdicts{Tags: tree.NOSTUDIED, Postconditions: tree.VERIFIED, Safety: tree.VERIFIED}),
		Elapsed: time.Millisecond,
	}

	var buf bytes.Buffer

	PrintSummary(&buf, res)

	out := buf.String()
	if !strings.Contains(out, "1/1 components verified") {
		t.Fatalf("summary missing component count: %s", out)
	}

	if !strings.Contains(out, "3/3 constraints covered") {
		t.Fatalf("summary missing constraint count: %s", out)
	}
}

func TestWriteCiverFileIncludesCounterexample(t *testing.T) {
	root := leaf(0, "Root", 1)
	verdicts := verifier.Verdicts{Safety: tree.FAILED}

	reports := reportsFor(root, verdicts)
	rep := reports[root.ID]
	rep.Counterexamples = map[encoder.Obligation]map[ast.SignalID]*big.Int{
		encoder.ObligationSafety: {1: big.NewInt(7)},
	}
	reports[root.ID] = rep

	res := Results{Root: root, Reports: reports, Elapsed: time.Second}

	var buf bytes.Buffer

	if err := WriteCiverFile(&buf, res); err != nil {
		t.Fatalf("WriteCiverFile: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Root (node_id 0)") {
		t.Fatalf("civer file missing node header: %s", out)
	}

	if !strings.Contains(out, "FAILED") {
		t.Fatalf("civer file missing verdict: %s", out)
	}

	if !strings.Contains(out, "Signal 1: 7") {
		t.Fatalf("civer file missing counterexample line: %s", out)
	}
}
