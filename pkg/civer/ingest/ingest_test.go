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
package ingest

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/go-civer/pkg/civer/ast"
)

const isZeroDocument = `{
  "prime": "11",
  "root": {
    "template_name": "IsZero",
    "node_id": 0,
    "number_inputs": 1,
    "number_outputs": 1,
    "number_signals": 3,
    "initial_signal": 1,
    "constraints": [
      {
        "name": "inv",
        "a": {"terms": {"1": "1"}, "constant": "0"},
        "b": {"terms": {"3": "1"}, "constant": "0"},
        "c": {"terms": {"2": "-1"}, "constant": "1"}
      },
      {
        "name": "zero",
        "a": {"terms": {"1": "1"}, "constant": "0"},
        "b": {"terms": {"2": "1"}, "constant": "0"},
        "c": {"terms": {}, "constant": "0"}
      }
    ],
    "annotations": {
      "postconditions_outputs": [
        {"kind": "infix", "op": "=>", "left": {"kind": "signal", "id": 2}, "right": {"kind": "infix", "op": "=", "left": {"kind": "signal", "id": 1}, "right": {"kind": "literal", "value": "0"}}}
      ]
    },
    "children": []
  }
}`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	return path
}

func TestReadFileDecodesSignalsAndConstraints(t *testing.T) {
	path := writeTemp(t, isZeroDocument)

	root, err := ReadFile(path, big.NewInt(11))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if root.TemplateName != "IsZero" {
		t.Fatalf("template name = %q", root.TemplateName)
	}

	if got, want := root.DisplayName, "IsZero"; got != want {
		t.Fatalf("display name defaulted to %q, want %q", got, want)
	}

	if len(root.Constraints) != 2 {
		t.Fatalf("constraints = %d, want 2", len(root.Constraints))
	}

	inv := root.Constraints[0]
	if got := inv.C.Terms[ast.SignalID(2)]; got.Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("inv.C[2] = %v, want -1", got)
	}

	if got := inv.C.Constant; got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("inv.C.Constant = %v, want 1", got)
	}

	if len(root.Annotations.PostconditionsOutputs) != 1 {
		t.Fatalf("postconditions = %d, want 1", len(root.Annotations.PostconditionsOutputs))
	}

	if got := len(root.InputSignals()); got != 1 {
		t.Fatalf("input signals = %d, want 1", got)
	}
}

func TestReadFileRejectsPrimeMismatch(t *testing.T) {
	path := writeTemp(t, isZeroDocument)

	if _, err := ReadFile(path, big.NewInt(13)); err == nil {
		t.Fatal("expected a prime-mismatch error, got nil")
	}
}

func TestReadFileRejectsUnrecognizedExpressionKind(t *testing.T) {
	doc := `{"prime":"11","root":{"template_name":"Bad","annotations":{"facts":[{"kind":"bogus"}]}}}`
	path := writeTemp(t, doc)

	if _, err := ReadFile(path, big.NewInt(11)); err == nil {
		t.Fatal("expected an error for an unrecognized expression kind")
	}
}

func TestReadFileRejectsMalformedJSON(t *testing.T) {
	path := writeTemp(t, "{not json")

	if _, err := ReadFile(path, nil); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
