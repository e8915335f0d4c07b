package squad_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alejandrodnm/fplbot/internal/adapters/fpl"
	"github.com/alejandrodnm/fplbot/internal/adapters/solver"
	"github.com/alejandrodnm/fplbot/internal/application/squad"
	"github.com/alejandrodnm/fplbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func player(id int, pos domain.Position, team, cost int, projected float64) domain.ScoredPlayer {
	return domain.ScoredPlayer{
		PlayerRecord: domain.PlayerRecord{
			ID:       id,
			Name:     fmt.Sprintf("player-%d", id),
			Position: pos,
			TeamID:   team,
			Cost:     cost,
		},
		ProjectedScore: projected,
	}
}

func smallRules() domain.LeagueRules {
	return domain.LeagueRules{
		Budget:    55,
		SquadSize: 6,
		TeamCap:   2,
		Quotas: map[domain.Position]int{
			domain.PositionGK:  1,
			domain.PositionDEF: 2,
			domain.PositionMID: 2,
			domain.PositionFWD: 1,
		},
	}
}

// smallPool tiene 20 jugadores de 4 equipos. Sin presupuesto el mejor equipo
// proyecta 242 y cuesta 59, así que el presupuesto de 55 está activo.
func smallPool() []domain.ScoredPlayer {
	gk, def, mid, fwd := domain.PositionGK, domain.PositionDEF, domain.PositionMID, domain.PositionFWD
	return []domain.ScoredPlayer{
		player(1, gk, 1, 10, 30), player(2, gk, 2, 8, 25), player(3, gk, 3, 6, 12), player(4, gk, 4, 5, 8),
		player(5, def, 1, 9, 40), player(6, def, 1, 7, 33), player(7, def, 2, 8, 35),
		player(8, def, 2, 5, 20), player(9, def, 3, 6, 22), player(10, def, 4, 4, 10),
		player(11, mid, 1, 14, 60), player(12, mid, 2, 12, 52), player(13, mid, 3, 10, 45),
		player(14, mid, 3, 7, 28), player(15, mid, 4, 6, 21), player(16, mid, 4, 9, 38),
		player(17, fwd, 1, 13, 55), player(18, fwd, 2, 11, 47), player(19, fwd, 3, 8, 30), player(20, fwd, 4, 5, 15),
	}
}

// bruteForce enumera todos los subconjuntos del tamaño de la plantilla.
func bruteForce(players []domain.ScoredPlayer, rules domain.LeagueRules) (float64, bool) {
	best, found := 0.0, false
	chosen := make([]domain.ScoredPlayer, 0, rules.SquadSize)
	var rec func(start int)
	rec = func(start int) {
		if len(chosen) == rules.SquadSize {
			sel := domain.NewSquadSelection(chosen)
			if sel.Validate(rules) == nil && (!found || sel.TotalProjected > best) {
				best, found = sel.TotalProjected, true
			}
			return
		}
		for i := start; i < len(players); i++ {
			chosen = append(chosen, players[i])
			rec(i + 1)
			chosen = chosen[:len(chosen)-1]
		}
	}
	rec(0)
	return best, found
}

func newOptimizer(rules domain.LeagueRules, presolve bool) *squad.Optimizer {
	return squad.New(squad.Config{Rules: rules, Timeout: 30 * time.Second, Presolve: presolve},
		solver.NewBranchAndBound(solver.Config{}))
}

// syntheticPool genera un pool determinista con n jugadores por posición
// repartidos en teams equipos.
func syntheticPool(perPosition, teams int) []domain.ScoredPlayer {
	var out []domain.ScoredPlayer
	id := 1
	for pi, pos := range domain.Positions() {
		for k := 0; k < perPosition; k++ {
			cost := 40 + (k*7+pi*3)%60
			projected := float64(cost)*1.5 + float64((k*13+pi*5)%23)
			out = append(out, player(id, pos, 1+(id%teams), cost, projected))
			id++
		}
	}
	return out
}

// fplLikePool genera n jugadores con una distribución parecida a la de la
// liga real: 20 equipos, cuotas de posición 2:5:5:3 y proyección correlada con
// el coste más ruido. LCG propio para que el pool sea idéntico en cada ejecución.
func fplLikePool(n int, seed uint64) []domain.ScoredPlayer {
	state := seed
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}
	positions := []domain.Position{domain.PositionGK, domain.PositionDEF, domain.PositionMID, domain.PositionFWD}
	share := []float64{2.0 / 15, 7.0 / 15, 12.0 / 15, 1}
	out := make([]domain.ScoredPlayer, 0, n)
	for id := 1; id <= n; id++ {
		r := next()
		pi := 0
		for r > share[pi] {
			pi++
		}
		cost := 40 + int(next()*next()*95)
		projected := float64(cost-35)*next()*1.8 + next()*25
		out = append(out, player(id, positions[pi], 1+int(next()*20), cost, projected))
	}
	return out
}

// --- tests ---

func TestOptimize_MatchesBruteForce(t *testing.T) {
	rules := smallRules()
	pool := smallPool()

	want, ok := bruteForce(pool, rules)
	require.True(t, ok)
	require.InDelta(t, 231.0, want, 1e-9)

	for _, presolve := range []bool{false, true} {
		t.Run(fmt.Sprintf("presolve=%v", presolve), func(t *testing.T) {
			sel, err := newOptimizer(rules, presolve).Optimize(context.Background(), pool)
			require.NoError(t, err)
			require.NoError(t, sel.Validate(rules))

			assert.InDelta(t, want, sel.TotalProjected, 1e-6)
			assert.LessOrEqual(t, sel.TotalCost, rules.Budget)
		})
	}
}

func TestOptimize_DefaultRules(t *testing.T) {
	rules := domain.DefaultLeagueRules()
	pool := syntheticPool(15, 10)

	sel, err := newOptimizer(rules, true).Optimize(context.Background(), pool)
	require.NoError(t, err)
	require.NoError(t, sel.Validate(rules))

	assert.Equal(t, 15, sel.Size())
	assert.Equal(t, 2, sel.PositionCounts[domain.PositionGK])
	assert.Equal(t, 5, sel.PositionCounts[domain.PositionDEF])
	assert.Equal(t, 5, sel.PositionCounts[domain.PositionMID])
	assert.Equal(t, 3, sel.PositionCounts[domain.PositionFWD])
	for team, n := range sel.TeamCounts {
		assert.LessOrEqual(t, n, 3, "team %d", team)
	}
}

func TestOptimize_LargePool(t *testing.T) {
	rules := domain.DefaultLeagueRules()
	pool := fplLikePool(700, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	with, err := newOptimizer(rules, true).Optimize(ctx, pool)
	require.NoError(t, err, "700 players must solve to optimality without timing out")
	require.NoError(t, with.Validate(rules))
	assert.Equal(t, 15, with.Size())
	assert.LessOrEqual(t, with.TotalCost, rules.Budget)

	without, err := newOptimizer(rules, false).Optimize(ctx, pool)
	require.NoError(t, err)
	assert.InDelta(t, with.TotalProjected, without.TotalProjected, 1e-6)
}

func TestOptimize_DryRunFixture(t *testing.T) {
	records, err := fpl.NewFileProvider("../../adapters/fpl/testdata/bootstrap_sample.json").FetchPlayers(context.Background())
	require.NoError(t, err)
	rules := domain.DefaultLeagueRules()
	pool := domain.ScorePool(records)

	sel, err := newOptimizer(rules, true).Optimize(context.Background(), pool.Players)
	require.NoError(t, err)
	require.NoError(t, sel.Validate(rules))
	assert.Equal(t, 15, sel.Size())
}

func TestOptimize_PresolveDoesNotChangeOptimum(t *testing.T) {
	rules := domain.DefaultLeagueRules()
	pool := syntheticPool(12, 8)

	with, err := newOptimizer(rules, true).Optimize(context.Background(), pool)
	require.NoError(t, err)
	without, err := newOptimizer(rules, false).Optimize(context.Background(), pool)
	require.NoError(t, err)

	assert.InDelta(t, without.TotalProjected, with.TotalProjected, 1e-6)
}

func TestOptimize_TooFewGoalkeepers(t *testing.T) {
	rules := domain.DefaultLeagueRules()
	var pool []domain.ScoredPlayer
	for _, p := range syntheticPool(15, 10) {
		if p.Position == domain.PositionGK && len(pool) > 0 && pool[len(pool)-1].Position == domain.PositionGK {
			continue // deja un solo portero
		}
		pool = append(pool, p)
	}

	_, err := newOptimizer(rules, true).Optimize(context.Background(), pool)
	assert.ErrorIs(t, err, domain.ErrNoFeasibleSquad)
}

func TestOptimize_BudgetTooSmall(t *testing.T) {
	rules := smallRules()
	rules.Budget = 20

	_, err := newOptimizer(rules, true).Optimize(context.Background(), smallPool())
	assert.ErrorIs(t, err, domain.ErrNoFeasibleSquad)
}

func TestOptimize_SkipsInvalidCosts(t *testing.T) {
	rules := smallRules()
	pool := append(smallPool(), player(99, domain.PositionMID, 4, 0, 500))

	sel, err := newOptimizer(rules, false).Optimize(context.Background(), pool)
	require.NoError(t, err)
	assert.False(t, sel.Contains(99))
	assert.InDelta(t, 231.0, sel.TotalProjected, 1e-6)
}

func TestOptimize_InvalidRules(t *testing.T) {
	rules := smallRules()
	rules.SquadSize = 7

	_, err := newOptimizer(rules, false).Optimize(context.Background(), smallPool())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoFeasibleSquad))
}

// --- traducción de estados del solver ---

type fakeSolver struct {
	sol domain.Solution
	err error
}

func (f fakeSolver) Solve(_ context.Context, p domain.Problem) (domain.Solution, error) {
	sol := f.sol
	if sol.Values == nil && sol.HasIncumbent {
		sol.Values = make([]float64, len(p.Variables))
	}
	return sol, f.err
}

func TestOptimize_TimeoutWithoutIncumbent(t *testing.T) {
	s := fakeSolver{sol: domain.Solution{Status: domain.StatusTimedOut, Nodes: 42, Elapsed: time.Second}}
	opt := squad.New(squad.Config{Rules: smallRules()}, s)

	_, err := opt.Optimize(context.Background(), smallPool())
	require.ErrorIs(t, err, domain.ErrOptimizationTimeout)

	var terr *domain.TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Nil(t, terr.Incumbent)
	assert.Equal(t, 42, terr.Nodes)
}

func TestOptimize_TimeoutKeepsValidIncumbent(t *testing.T) {
	// Incumbente válido: 2, 6, 7, 13, 16, 17 (índices 1, 5, 6, 12, 15, 16).
	values := make([]float64, 20)
	for _, i := range []int{1, 5, 6, 12, 15, 16} {
		values[i] = 1
	}
	s := fakeSolver{sol: domain.Solution{Status: domain.StatusTimedOut, HasIncumbent: true, Values: values}}
	opt := squad.New(squad.Config{Rules: smallRules()}, s)

	_, err := opt.Optimize(context.Background(), smallPool())
	var terr *domain.TimeoutError
	require.True(t, errors.As(err, &terr))
	require.NotNil(t, terr.Incumbent)
	assert.Equal(t, []int{2, 6, 7, 13, 16, 17}, terr.Incumbent.PlayerIDs)
	assert.InDelta(t, 231.0, terr.Incumbent.TotalProjected, 1e-9)
}

func TestOptimize_TimeoutDropsInvalidIncumbent(t *testing.T) {
	// Todo a cero no es una plantilla válida.
	s := fakeSolver{sol: domain.Solution{Status: domain.StatusTimedOut, HasIncumbent: true}}
	opt := squad.New(squad.Config{Rules: smallRules()}, s)

	_, err := opt.Optimize(context.Background(), smallPool())
	var terr *domain.TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Nil(t, terr.Incumbent)
}

func TestOptimize_Unbounded(t *testing.T) {
	opt := squad.New(squad.Config{Rules: smallRules()}, fakeSolver{sol: domain.Solution{Status: domain.StatusUnbounded}})

	_, err := opt.Optimize(context.Background(), smallPool())
	assert.ErrorIs(t, err, domain.ErrUnboundedSquad)
}

func TestOptimize_SolverError(t *testing.T) {
	boom := errors.New("boom")
	opt := squad.New(squad.Config{Rules: smallRules()}, fakeSolver{err: boom})

	_, err := opt.Optimize(context.Background(), smallPool())
	assert.ErrorIs(t, err, boom)
}

func TestOptimize_RejectsInvalidOptimalAssignment(t *testing.T) {
	s := fakeSolver{sol: domain.Solution{Status: domain.StatusOptimal, Values: make([]float64, 20)}}
	opt := squad.New(squad.Config{Rules: smallRules()}, s)

	_, err := opt.Optimize(context.Background(), smallPool())
	assert.Error(t, err)
}

func TestBuildProblem_Shape(t *testing.T) {
	rules := smallRules()
	p := squad.BuildProblem(smallPool(), rules)

	assert.Equal(t, domain.Maximize, p.Sense)
	assert.Len(t, p.Variables, 20)
	// tamaño + presupuesto + 4 posiciones + 4 equipos
	assert.Len(t, p.Constraints, 10)
	for _, v := range p.Variables {
		assert.Equal(t, domain.Binary, v.Kind)
	}
}
