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
	"os"

	"github.com/segmentio/encoding/json"

	"github.com/consensys/go-civer/pkg/civer/tree"
)

// Timing carries the four phase durations plus the overall total that
// structure_file's "timing" object reports. Phases civer itself
// never measures (they belong to the external front-end/DAG-construction
// passes) are left zero, matching "populated where measured, zero
// otherwise".
type Timing struct {
	GraphConstruction float64 `json:"graph_construction"`
	Clustering        float64 `json:"clustering"`
	DagConstruction   float64 `json:"dag_construction"`
	Equivalency       float64 `json:"equivalency"`
	Total             float64 `json:"total"`
}

// StructureNode is one entry of structure_file's "nodes" array.
type StructureNode struct {
	NodeID        int    `json:"node_id"`
	Constraints   []int  `json:"constraints"`
	InputSignals  []uint `json:"input_signals"`
	OutputSignals []uint `json:"output_signals"`
	Signals       []uint `json:"signals"`
	Successors    []int  `json:"successors"`
}

// Structure is the full structure_file document.
type Structure struct {
	Timing                Timing          `json:"timing"`
	Nodes                 []StructureNode `json:"nodes"`
	LocalEquivalency      [][]int         `json:"local_equivalency"`
	StructuralEquivalency [][]int         `json:"structural_equivalency"`
}

// BuildStructure walks root in pre-order, assigning each node a dense
// per-traversal index (0 = root) and, in the same pass, a global
// sequential id to every constraint it owns -- the numbering
// initial_constraints_file's constraint_id keys share. It returns the
// Structure document and the constraint_id -> template_name map that
// WriteInitialConstraintsFile dumps.
//
// local_equivalency and structural_equivalency are intentionally the same
// value in this release, grouping indices that share the same
// template_node_id.
func BuildStructure(root *tree.Node, timing Timing) (Structure, map[int]string) {
	var (
		nodes            []StructureNode
		constraintOwners = make(map[int]string)
		equivClasses     = make(map[tree.NodeID][]int)
		nextConstraintID = 0
	)

	var assignIndex func(n *tree.Node) int

	assignIndex = func(n *tree.Node) int {
		idx := len(nodes)

		// Reserve the slot now so this node takes the next pre-order
		// index ahead of its children; the entry is only filled in
		// below, after every child has its own index.
		nodes = append(nodes, StructureNode{NodeID: idx})

		constraintIDs := make([]int, len(n.Constraints))
		for i := range n.Constraints {
			id := nextConstraintID
			nextConstraintID++
			constraintIDs[i] = id
			constraintOwners[id] = n.TemplateName
		}

		successors := make([]int, 0, len(n.Children))
		for _, child := range n.Children {
			successors = append(successors, assignIndex(child))
		}

		nodes[idx] = StructureNode{
			NodeID:        idx,
			Constraints:   constraintIDs,
			InputSignals:  n.InputSignals(),
			OutputSignals: n.OutputSignals(),
			Signals:       n.AllSignals(),
			Successors:    successors,
		}

		equivClasses[n.ID] = append(equivClasses[n.ID], idx)

		return idx
	}

	assignIndex(root)

	classes := equivalencyClasses(equivClasses)

	return Structure{
		Timing:                timing,
		Nodes:                 nodes,
		LocalEquivalency:      classes,
		StructuralEquivalency: classes,
	}, constraintOwners
}

// equivalencyClasses sorts classes by their first member so the emitted
// JSON has a deterministic order across runs.
func equivalencyClasses(byID map[tree.NodeID][]int) [][]int {
	out := make([][]int, 0, len(byID))

	for _, idxs := range byID {
		out = append(out, idxs)
	}

	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j][0] < out[i][0] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}

	return out
}

// WriteStructureFile serializes s as the structure_file JSON document.
func WriteStructureFile(path string, s Structure) error {
	return writeJSON(path, s)
}

// WriteInitialConstraintsFile serializes the constraint_id -> template_name
// mapping built by BuildStructure.
func WriteInitialConstraintsFile(path string, owners map[int]string) error {
	return writeJSON(path, owners)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
