package solver_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/alejandrodnm/fplbot/internal/adapters/solver"
	"github.com/alejandrodnm/fplbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaries(n int) []domain.Variable {
	vars := make([]domain.Variable, n)
	for i := range vars {
		vars[i] = domain.BinaryVar("x")
	}
	return vars
}

func terms(coefs ...float64) []domain.Term {
	out := make([]domain.Term, len(coefs))
	for i, c := range coefs {
		out[i] = domain.Term{Var: i, Coef: c}
	}
	return out
}

func knapsack() domain.Problem {
	return domain.Problem{
		Name:      "knapsack",
		Sense:     domain.Maximize,
		Variables: binaries(3),
		Objective: []float64{10, 13, 7},
		Constraints: []domain.Constraint{
			{Name: "weight", Terms: terms(4, 6, 3), Op: domain.LessEq, RHS: 10},
		},
	}
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	s := solver.NewBranchAndBound(solver.Config{})

	sol, err := s.Solve(context.Background(), knapsack())
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, sol.Status)

	assert.InDelta(t, 23.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{1, 1, 0}, sol.Values)
	assert.Positive(t, sol.Nodes)
}

func TestBranchAndBound_DependentEqualities(t *testing.T) {
	// La primera igualdad es la suma de las otras dos.
	p := domain.Problem{
		Sense:     domain.Maximize,
		Variables: binaries(4),
		Objective: []float64{1, 2, 3, 4},
		Constraints: []domain.Constraint{
			{Name: "size", Terms: terms(1, 1, 1, 1), Op: domain.Equal, RHS: 2},
			{Name: "first", Terms: terms(1, 1, 0, 0), Op: domain.Equal, RHS: 1},
			{Name: "second", Terms: []domain.Term{{Var: 2, Coef: 1}, {Var: 3, Coef: 1}}, Op: domain.Equal, RHS: 1},
		},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 6.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{0, 1, 0, 1}, sol.Values)
}

func TestBranchAndBound_GeneralIntegers(t *testing.T) {
	// Relajación en (3, 1.5) = 21; óptimo entero en (4, 0) = 20.
	inf := math.Inf(1)
	p := domain.Problem{
		Sense: domain.Maximize,
		Variables: []domain.Variable{
			{Name: "x", Kind: domain.Integer, Lower: 0, Upper: inf},
			{Name: "y", Kind: domain.Integer, Lower: 0, Upper: inf},
		},
		Objective: []float64{5, 4},
		Constraints: []domain.Constraint{
			{Terms: terms(6, 4), Op: domain.LessEq, RHS: 24},
			{Terms: terms(1, 2), Op: domain.LessEq, RHS: 6},
		},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 20.0, sol.Objective, 1e-6)
	assert.InDelta(t, 4.0, sol.Values[0], 1e-9)
	assert.InDelta(t, 0.0, sol.Values[1], 1e-9)
}

func TestBranchAndBound_MinimizeWithGreaterEq(t *testing.T) {
	p := domain.Problem{
		Sense: domain.Minimize,
		Variables: []domain.Variable{
			{Name: "x", Kind: domain.Integer, Lower: 0, Upper: 3},
			{Name: "y", Kind: domain.Integer, Lower: 0, Upper: 10},
		},
		Objective: []float64{3, 2},
		Constraints: []domain.Constraint{
			{Terms: terms(1, 1), Op: domain.GreaterEq, RHS: 4},
		},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, sol.Status)
	assert.InDelta(t, 8.0, sol.Objective, 1e-6)
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	p := domain.Problem{
		Sense:     domain.Maximize,
		Variables: binaries(2),
		Objective: []float64{1, 1},
		Constraints: []domain.Constraint{
			{Terms: terms(1, 1), Op: domain.Equal, RHS: 3},
		},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasIncumbent)
}

func TestBranchAndBound_Unbounded(t *testing.T) {
	p := domain.Problem{
		Sense: domain.Maximize,
		Variables: []domain.Variable{
			{Name: "free", Kind: domain.Continuous, Lower: 0, Upper: math.Inf(1)},
			{Name: "capped", Kind: domain.Continuous, Lower: 0, Upper: 1},
		},
		Objective: []float64{1, 1},
		Constraints: []domain.Constraint{
			{Terms: []domain.Term{{Var: 1, Coef: 1}}, Op: domain.LessEq, RHS: 1},
		},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnbounded, sol.Status)
}

func TestBranchAndBound_CancelledContextTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(ctx, knapsack())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTimedOut, sol.Status)
	assert.False(t, sol.HasIncumbent)
}

func TestBranchAndBound_NodeLimitTimesOut(t *testing.T) {
	// La relajación raíz del knapsack es fraccional: con un solo nodo no hay prueba de optimalidad.
	sol, err := solver.NewBranchAndBound(solver.Config{MaxNodes: 1}).Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTimedOut, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
}

func TestBranchAndBound_RejectsBadVariableIndex(t *testing.T) {
	p := knapsack()
	p.Constraints = append(p.Constraints, domain.Constraint{
		Name:  "broken",
		Terms: []domain.Term{{Var: 7, Coef: 1}},
		Op:    domain.LessEq,
		RHS:   1,
	})

	_, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	assert.Error(t, err)
}

func TestBranchAndBound_NoConstraints(t *testing.T) {
	p := domain.Problem{
		Sense:     domain.Maximize,
		Variables: binaries(3),
		Objective: []float64{2, -1, 3},
	}

	sol, err := solver.NewBranchAndBound(solver.Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 0, 1}, sol.Values)
	assert.InDelta(t, 5.0, sol.Objective, 1e-9)
}

func TestBranchAndBound_NodeLimitKeepsIncumbent(t *testing.T) {
	// Raíz fraccional y el primer buceo ya es entero: 2 nodos bastan para el
	// incumbente pero no para cerrar la cola.
	sol, err := solver.NewBranchAndBound(solver.Config{MaxNodes: 2}).Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTimedOut, sol.Status)
	require.True(t, sol.HasIncumbent)
	assert.InDelta(t, 23.0, sol.Objective, 1e-6)
}

// randomProblem genera un MILP pequeño con enteras en [0, ub] y restricciones
// de los tres tipos.
func randomProblem(rng *rand.Rand) domain.Problem {
	n := 3 + rng.Intn(6)
	p := domain.Problem{Sense: domain.Minimize}
	for j := 0; j < n; j++ {
		ub := float64(1 + rng.Intn(2))
		p.Variables = append(p.Variables, domain.Variable{Name: fmt.Sprintf("x%d", j), Kind: domain.Integer, Upper: ub})
		p.Objective = append(p.Objective, math.Round(rng.Float64()*2000-1000)/100)
	}
	ops := []domain.ConstraintOp{domain.LessEq, domain.LessEq, domain.GreaterEq, domain.Equal}
	for i, rows := 0, 1+rng.Intn(4); i < rows; i++ {
		c := domain.Constraint{Op: ops[rng.Intn(len(ops))], RHS: float64(rng.Intn(9))}
		for j := 0; j < n; j++ {
			if rng.Float64() < 0.7 {
				c.Terms = append(c.Terms, domain.Term{Var: j, Coef: float64(rng.Intn(10) - 4)})
			}
		}
		p.Constraints = append(p.Constraints, c)
	}
	return p
}

// enumerate recorre todas las asignaciones enteras; ok es false si ninguna es factible.
func enumerate(p domain.Problem) (best float64, ok bool) {
	x := make([]float64, len(p.Variables))
	var rec func(j int)
	rec = func(j int) {
		if j == len(x) {
			for _, c := range p.Constraints {
				var v float64
				for _, t := range c.Terms {
					v += t.Coef * x[t.Var]
				}
				if (c.Op == domain.LessEq && v > c.RHS+1e-9) ||
					(c.Op == domain.GreaterEq && v < c.RHS-1e-9) ||
					(c.Op == domain.Equal && math.Abs(v-c.RHS) > 1e-9) {
					return
				}
			}
			var obj float64
			for k, c := range p.Objective {
				obj += c * x[k]
			}
			if !ok || obj < best {
				best, ok = obj, true
			}
			return
		}
		for v := p.Variables[j].Lower; v <= p.Variables[j].Upper; v++ {
			x[j] = v
			rec(j + 1)
		}
	}
	rec(0)
	return best, ok
}

func TestBranchAndBound_MatchesEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := solver.NewBranchAndBound(solver.Config{})

	for i := 0; i < 200; i++ {
		p := randomProblem(rng)
		want, feasible := enumerate(p)

		sol, err := s.Solve(context.Background(), p)
		require.NoError(t, err, "problem %d", i)
		if !feasible {
			assert.Equal(t, domain.StatusInfeasible, sol.Status, "problem %d", i)
			continue
		}
		require.Equal(t, domain.StatusOptimal, sol.Status, "problem %d", i)
		assert.InDelta(t, want, sol.Objective, 1e-6, "problem %d", i)
	}
}
