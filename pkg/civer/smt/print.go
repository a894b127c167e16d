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
package smt

import "fmt"

// StringOf renders a term as a parenthesised infix expression, used only for
// diagnostics (the civer_file trace and debug logging); it is not a
// guaranteed round-trippable format.
func StringOf(t Term) string {
	switch v := t.(type) {
	case *Const:
		return v.Val.String()
	case *Var:
		return v.Name
	case *Neg:
		return fmt.Sprintf("(-%s)", StringOf(v.X))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", StringOf(v.X), v.Op, StringOf(v.Y))
	case *DivMod:
		op := "/int"
		if v.Op == OpMod {
			op = "mod"
		}

		return fmt.Sprintf("(%s %s %s)", StringOf(v.X), op, StringOf(v.Y))
	case *Pred:
		return fmt.Sprintf("(%s %s %s)", StringOf(v.Left), v.Op, StringOf(v.Right))
	case *BinopConnectivePred:
		return fmt.Sprintf("(%s %s %s)", StringOf(v.Left), connectiveSymbol(v.Op), StringOf(v.Right))
	case *Not:
		return fmt.Sprintf("(not %s)", StringOf(v.X))
	case *BoolLit:
		if v.Value {
			return "true"
		}

		return "false"
	default:
		return "<?term?>"
	}
}

func connectiveSymbol(op BinopConnective) string {
	switch op {
	case OpAnd:
		return "∧"
	case OpOr:
		return "∨"
	case OpIff:
		return "↔"
	case OpImplies:
		return "⇒"
	default:
		return "?"
	}
}
