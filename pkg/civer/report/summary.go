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
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/consensys/go-civer/pkg/civer/tree"
)

// summaryWidth sizes output to the actual terminal, falling back to a
// conservative default when stdout isn't a terminal (e.g. redirected to a
// file or CI log).
func summaryWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}

	return 80
}

// obligationTally counts how many nodes settled to each verdict for one
// obligation.
type obligationTally struct {
	verified, failed, unknown, nothing, nostudied int
}

func (t *obligationTally) add(v tree.PossibleResult) {
	switch v {
	case tree.VERIFIED:
		t.verified++
	case tree.FAILED:
		t.failed++
	case tree.UNKNOWN, tree.TOO_BIG:
		t.unknown++
	case tree.NOTHING:
		t.nothing++
	case tree.NOSTUDIED:
		t.nostudied++
	}
}

func (t obligationTally) studied() int {
	return t.verified + t.failed + t.unknown + t.nothing
}

// PrintSummary writes the human-readable totals table:
// verified/failed/timeout counts per obligation, plus the percentage of
// constraints and components verified for safety.
func PrintSummary(w io.Writer, res Results) {
	var tags, post, safety obligationTally

	totalConstraints, safeConstraints := 0, 0
	totalComponents, safeComponents := 0, 0

	visited := make(map[tree.NodeID]bool)

	var walk func(n *tree.Node)

	walk = func(n *tree.Node) {
		if visited[n.ID] {
			return
		}

		visited[n.ID] = true

		for _, c := range n.Children {
			walk(c)
		}

		rep, ok := res.reportFor(n)
		if !ok {
			return
		}

		tags.add(rep.Verdicts.Tags)
		post.add(rep.Verdicts.Postconditions)
		safety.add(rep.Verdicts.Safety)

		totalComponents++
		totalConstraints += len(n.Constraints)

		if rep.Verdicts.Safety == tree.VERIFIED {
			safeComponents++
			safeConstraints += len(n.Constraints)
		}
	}

	walk(res.Root)

	rule := strings.Repeat("-", min(summaryWidth(), 72))

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "civer summary (%s)\n", res.Elapsed)
	fmt.Fprintf(w, "%-16s %8s %8s %8s %8s\n", "obligation", "verified", "failed", "timeout", "studied")
	printRow(w, "tags", tags)
	printRow(w, "postconditions", post)
	printRow(w, "safety", safety)

	fmt.Fprintf(w, "\nsafety: %d/%d components verified (%s), %d/%d constraints covered (%s)\n",
		safeComponents, totalComponents, percent(safeComponents, totalComponents),
		safeConstraints, totalConstraints, percent(safeConstraints, totalConstraints))
}

func printRow(w io.Writer, name string, t obligationTally) {
	fmt.Fprintf(w, "%-16s %8d %8d %8d %8d\n", name, t.verified, t.failed, t.unknown, t.studied())
}

func percent(n, total int) string {
	if total == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}
