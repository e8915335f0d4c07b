package squad

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fplbot/internal/domain"
	"github.com/alejandrodnm/fplbot/internal/ports"
)

// Config contiene la configuración del optimizador de plantilla.
type Config struct {
	Rules    domain.LeagueRules
	Timeout  time.Duration // 0 = sin límite propio, solo el del ctx
	Presolve bool          // reducción por dominancia antes de construir el problema
}

// DefaultConfig devuelve las reglas oficiales, 60s de timeout y presolve activo.
func DefaultConfig() Config {
	return Config{
		Rules:    domain.DefaultLeagueRules(),
		Timeout:  60 * time.Second,
		Presolve: true,
	}
}

// Optimizer elige la plantilla que maximiza la suma de ProjectedScore sujeta
// a tamaño, presupuesto, cuotas exactas por posición y tope por equipo.
// La resolución se delega en un ports.MilpSolver.
type Optimizer struct {
	cfg    Config
	solver ports.MilpSolver
}

// New crea un Optimizer con el solver inyectado.
func New(cfg Config, solver ports.MilpSolver) *Optimizer {
	return &Optimizer{cfg: cfg, solver: solver}
}

// Rules devuelve las reglas de liga con las que se optimiza.
func (o *Optimizer) Rules() domain.LeagueRules {
	return o.cfg.Rules
}

// Optimize devuelve una plantilla óptima o un error tipado:
//   - domain.ErrNoFeasibleSquad si no existe plantilla válida.
//   - *domain.TimeoutError (errors.Is ErrOptimizationTimeout) si el solver no
//     terminó a tiempo; lleva el incumbente si había uno válido.
//   - domain.ErrUnboundedSquad si el solver reporta objetivo no acotado.
//
// Nunca devuelve una plantilla parcial. Entre varias plantillas óptimas no se
// garantiza cuál se elige.
func (o *Optimizer) Optimize(ctx context.Context, players []domain.ScoredPlayer) (domain.SquadSelection, error) {
	rules := o.cfg.Rules
	if err := rules.Validate(); err != nil {
		return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: %w", err)
	}

	candidates := eligible(players, rules)
	pruned := 0
	if o.cfg.Presolve {
		before := len(candidates)
		candidates = removeDominated(candidates, rules)
		pruned = before - len(candidates)
	}

	problem := BuildProblem(candidates, rules)

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	slog.Debug("solving squad problem",
		"pool", len(players),
		"candidates", len(candidates),
		"dominated", pruned,
		"constraints", len(problem.Constraints),
		"timeout", o.cfg.Timeout,
	)

	sol, err := o.solver.Solve(ctx, problem)
	if err != nil {
		return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: solve: %w", err)
	}

	switch sol.Status {
	case domain.StatusOptimal:
		sel, err := selectionFromValues(candidates, sol.Values)
		if err != nil {
			return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: %w", err)
		}
		if err := sel.Validate(rules); err != nil {
			return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: solver returned invalid squad: %w", err)
		}
		slog.Info("squad optimized",
			"projected", fmt.Sprintf("%.2f", sel.TotalProjected),
			"cost", sel.TotalCost,
			"budget", rules.Budget,
			"nodes", sol.Nodes,
			"elapsed", sol.Elapsed.Round(time.Millisecond),
		)
		return sel, nil

	case domain.StatusInfeasible:
		return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: %d candidates: %w", len(candidates), domain.ErrNoFeasibleSquad)

	case domain.StatusUnbounded:
		return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: %w", domain.ErrUnboundedSquad)

	case domain.StatusTimedOut:
		terr := &domain.TimeoutError{Elapsed: sol.Elapsed, Nodes: sol.Nodes}
		if sol.HasIncumbent {
			if sel, err := selectionFromValues(candidates, sol.Values); err == nil && sel.Validate(rules) == nil {
				terr.Incumbent = &sel
			}
		}
		return domain.SquadSelection{}, terr
	}

	return domain.SquadSelection{}, fmt.Errorf("squad.Optimize: unexpected solver status %s", sol.Status)
}

// BuildProblem traduce el pool a un programa binario:
//
//	max   Σ projected_i · x_i
//	s.t.  Σ x_i                 = SquadSize
//	      Σ cost_i · x_i       <= Budget
//	      Σ_{i ∈ pos} x_i       = Quota[pos]   (por posición)
//	      Σ_{i ∈ team} x_i     <= TeamCap      (por equipo)
//
// La variable i corresponde a players[i].
func BuildProblem(players []domain.ScoredPlayer, rules domain.LeagueRules) domain.Problem {
	p := domain.Problem{
		Name:      "squad",
		Sense:     domain.Maximize,
		Variables: make([]domain.Variable, len(players)),
		Objective: make([]float64, len(players)),
	}

	all := make([]domain.Term, len(players))
	cost := make([]domain.Term, len(players))
	byPosition := make(map[domain.Position][]domain.Term)
	byTeam := make(map[int][]domain.Term)
	var teams []int

	for i, pl := range players {
		p.Variables[i] = domain.BinaryVar(fmt.Sprintf("player_%d", pl.ID))
		p.Objective[i] = pl.ProjectedScore
		all[i] = domain.Term{Var: i, Coef: 1}
		cost[i] = domain.Term{Var: i, Coef: float64(pl.Cost)}
		byPosition[pl.Position] = append(byPosition[pl.Position], domain.Term{Var: i, Coef: 1})
		if _, ok := byTeam[pl.TeamID]; !ok {
			teams = append(teams, pl.TeamID)
		}
		byTeam[pl.TeamID] = append(byTeam[pl.TeamID], domain.Term{Var: i, Coef: 1})
	}

	p.Constraints = append(p.Constraints,
		domain.Constraint{Name: "squad_size", Terms: all, Op: domain.Equal, RHS: float64(rules.SquadSize)},
		domain.Constraint{Name: "budget", Terms: cost, Op: domain.LessEq, RHS: float64(rules.Budget)},
	)
	for _, pos := range domain.Positions() {
		q, ok := rules.Quotas[pos]
		if !ok {
			continue
		}
		p.Constraints = append(p.Constraints, domain.Constraint{
			Name:  "quota_" + string(pos),
			Terms: byPosition[pos],
			Op:    domain.Equal,
			RHS:   float64(q),
		})
	}
	for _, team := range teams {
		p.Constraints = append(p.Constraints, domain.Constraint{
			Name:  fmt.Sprintf("team_%d", team),
			Terms: byTeam[team],
			Op:    domain.LessEq,
			RHS:   float64(rules.TeamCap),
		})
	}
	return p
}

// eligible descarta jugadores que nunca pueden entrar: posición sin cuota o
// coste no positivo (registro mal formado).
func eligible(players []domain.ScoredPlayer, rules domain.LeagueRules) []domain.ScoredPlayer {
	out := make([]domain.ScoredPlayer, 0, len(players))
	for _, p := range players {
		if rules.Quotas[p.Position] <= 0 || p.Cost <= 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// selectionFromValues convierte la asignación del solver en SquadSelection.
func selectionFromValues(players []domain.ScoredPlayer, values []float64) (domain.SquadSelection, error) {
	if len(values) != len(players) {
		return domain.SquadSelection{}, fmt.Errorf("solver returned %d values for %d variables", len(values), len(players))
	}
	chosen := make([]domain.ScoredPlayer, 0, 16)
	for i, v := range values {
		if v > 0.5 {
			chosen = append(chosen, players[i])
		}
	}
	return domain.NewSquadSelection(chosen), nil
}
