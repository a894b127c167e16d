package eval

import (
	"math/big"
	"testing"

	"github.com/consensys/go-civer/pkg/civer/ast"
	"github.com/consensys/go-civer/pkg/civer/smt"
	"github.com/consensys/go-civer/pkg/civer/smt/enumsolver"
	"github.com/consensys/go-civer/pkg/util/source"
)

func lit(v int64) *ast.Literal {
	return ast.NewLiteral(big.NewInt(v), source.NewSpan(0, 0))
}

func sig(id uint) *ast.Signal {
	return ast.NewSignal(id, source.NewSpan(0, 0))
}

func TestToIntTermArithmetic(t *testing.T) {
	p := big.NewInt(17)
	ctx := enumsolver.NewContext(0, 1000)
	env := Env{0: ctx.IntConst("s0")}

	e := ast.NewInfix(ast.Add, sig(0), lit(3), source.NewSpan(0, 0))

	term, ok := ToIntTerm(e, env, p)
	if !ok {
		t.Fatal("expected translation to succeed")
	}

	ctx.Assert(smt.NewEq(env[0], smt.NewConst(big.NewInt(2))))

	res, model := ctx.Check()
	if res != smt.Sat {
		t.Fatalf("expected sat, got %s", res)
	}

	got := model.Eval(term)
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("expected 5, got %s", got)
	}
}

func TestToIntTermRejectsNonLiteralShift(t *testing.T) {
	p := big.NewInt(17)
	env := Env{0: &smt.Var{Name: "s0"}, 1: &smt.Var{Name: "s1"}}

	e := ast.NewInfix(ast.Shl, sig(0), sig(1), source.NewSpan(0, 0))

	if _, ok := ToIntTerm(e, env, p); ok {
		t.Error("expected non-literal shift to fail translation")
	}
}

func TestToIntTermAcceptsLiteralShift(t *testing.T) {
	p := big.NewInt(101)
	env := Env{0: &smt.Var{Name: "s0"}}

	e := ast.NewInfix(ast.Shl, sig(0), lit(3), source.NewSpan(0, 0))

	term, ok := ToIntTerm(e, env, p)
	if !ok {
		t.Fatal("expected literal shift to translate")
	}

	env2 := map[string]*big.Int{"s0": big.NewInt(5)}
	got := evalWithEnv(term, env2)

	if got.Cmp(big.NewInt(40)) != 0 {
		t.Errorf("expected 5<<3=40, got %s", got)
	}
}

// evalWithEnv is a tiny local evaluator mirroring enumsolver's, used only to
// check shift lowering without depending on enumsolver internals.
func evalWithEnv(t smt.IntTerm, env map[string]*big.Int) *big.Int {
	switch v := t.(type) {
	case *smt.Const:
		return &v.Val
	case *smt.Var:
		return env[v.Name]
	case *smt.Binary:
		x, y := evalWithEnv(v.X, env), evalWithEnv(v.Y, env)

		var r big.Int

		switch v.Op {
		case smt.Add:
			r.Add(x, y)
		case smt.Sub:
			r.Sub(x, y)
		case smt.Mul:
			r.Mul(x, y)
		}

		return &r
	default:
		panic("unsupported")
	}
}

func TestToBoolTermEqFallsBackToBoolean(t *testing.T) {
	p := big.NewInt(17)
	env := Env{0: &smt.Var{Name: "s0"}, 1: &smt.Var{Name: "s1"}}

	left := ast.NewInfix(ast.Lt, sig(0), lit(5), source.NewSpan(0, 0))
	right := ast.NewInfix(ast.Lt, sig(1), lit(5), source.NewSpan(0, 0))
	e := ast.NewInfix(ast.Eq, left, right, source.NewSpan(0, 0))

	f, ok := ToBoolTerm(e, env, p)
	if !ok {
		t.Fatal("expected boolean fallback to succeed")
	}

	if _, isIff := f.(*smt.BinopConnectivePred); !isIff {
		t.Errorf("expected an iff-shaped connective, got %T", f)
	}
}

func TestToBoolTermSignalIsNonzero(t *testing.T) {
	p := big.NewInt(17)
	env := Env{0: &smt.Var{Name: "s0"}}

	f, ok := ToBoolTerm(sig(0), env, p)
	if !ok {
		t.Fatal("expected translation to succeed")
	}

	pred, isPred := f.(*smt.Pred)
	if !isPred || pred.Op != smt.OpNe {
		t.Errorf("expected (s0 != 0), got %s", smt.StringOf(f))
	}
}

func TestToIntTermUnboundSignalFails(t *testing.T) {
	p := big.NewInt(17)
	env := Env{}

	if _, ok := ToIntTerm(sig(42), env, p); ok {
		t.Error("expected unbound signal to fail translation")
	}
}
