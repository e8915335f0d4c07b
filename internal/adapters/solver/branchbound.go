package solver

// branchbound.go — MILP por branch-and-bound best-bound sobre las
// relajaciones de relaxation.go.
//
// Estrategia:
//   - Ramificar = endurecer la cota de la entera básica más fraccional
//     (x <= floor(v) | x >= ceil(v)). Sin filas nuevas: el hijo reutiliza la
//     base del padre.
//   - Se bucea por el hijo hacia el que redondea la relajación sobre el mismo
//     tableau; el hermano se guarda (cotas + base) en una cola ordenada por la
//     cota del padre y se refactoriza al sacarlo.
//   - Poda contra el corte: incumbente − 1 si el objetivo es entero por
//     construcción, incumbente con tolerancia relativa si no.
//   - Con incumbente, las enteras no básicas cuyo coste reducido excede el
//     hueco hasta el corte quedan fijadas para todo el subárbol.
//   - ctx cancelado o MaxNodes agotado → StatusTimedOut con el incumbente.

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

const (
	intTol = 1e-6 // tolerancia de integralidad
	gapTol = 1e-9 // mejora mínima relativa para no podar
)

// Config controla los límites del solver.
type Config struct {
	MaxNodes int // 0 = sin límite
}

// BranchAndBound implementa ports.MilpSolver.
type BranchAndBound struct {
	cfg Config
}

// NewBranchAndBound crea un solver con la configuración dada.
func NewBranchAndBound(cfg Config) *BranchAndBound {
	return &BranchAndBound{cfg: cfg}
}

// Solve resuelve el problema. Solo devuelve error si el problema está mal
// formado o el simplex de un nodo no converge ni desde la base de lógicas.
func (s *BranchAndBound) Solve(ctx context.Context, p domain.Problem) (domain.Solution, error) {
	start := time.Now()
	if err := validate(p); err != nil {
		return domain.Solution{}, fmt.Errorf("solver.Solve: %w", err)
	}

	md := newModel(p)

	var (
		incumbent []float64
		best      = math.Inf(1) // en forma de minimización
		nodes     int
		fixed     int
		queue     nodeQueue
	)

	finish := func(status domain.SolveStatus) domain.Solution {
		sol := domain.Solution{
			Status:       status,
			Nodes:        nodes,
			Elapsed:      time.Since(start),
			HasIncumbent: incumbent != nil,
		}
		if incumbent != nil {
			sol.Values = incumbent
			sol.Objective = best
			if p.Sense == domain.Maximize {
				sol.Objective = -best
			}
		}
		slog.Debug("branch-and-bound finished",
			"problem", p.Name,
			"status", status.String(),
			"nodes", nodes,
			"open", queue.Len(),
			"fixed_by_reduced_cost", fixed,
			"elapsed", sol.Elapsed.Round(time.Millisecond),
		)
		return sol
	}

	cutoff := func() float64 {
		switch {
		case incumbent == nil:
			return math.Inf(1)
		case md.integralObjective:
			return best - 1 + intTol
		default:
			return best - gapTol*(1+math.Abs(best))
		}
	}

	lo, hi := rootBounds(p)
	current := newTableau(md, lo, hi)

	for current != nil || queue.Len() > 0 {
		if ctx.Err() != nil {
			return finish(domain.StatusTimedOut), nil
		}
		if s.cfg.MaxNodes > 0 && nodes >= s.cfg.MaxNodes {
			return finish(domain.StatusTimedOut), nil
		}

		tb := current
		current = nil
		if tb == nil {
			nd := heap.Pop(&queue).(*openNode)
			if nd.bound > cutoff() {
				continue
			}
			tb = nd.restore(md)
		}
		nodes++

		switch tb.solve() {
		case lpInfeasible:
			continue
		case lpFailed:
			slog.Debug("relaxation stalled, restarting from slack basis", "node", nodes)
			tb.slackBasis()
			switch tb.solve() {
			case lpInfeasible:
				continue
			case lpFailed:
				return domain.Solution{}, fmt.Errorf("solver.Solve: node %d: %w", nodes, errStalled)
			}
		}
		if tb.unbounded() {
			if nodes == 1 {
				// Relajación raíz no acotada: el MILP es no acotado o infactible;
				// se reporta como no acotado.
				return finish(domain.StatusUnbounded), nil
			}
			continue
		}

		z := tb.objective()
		if z > cutoff() {
			continue
		}
		if incumbent != nil {
			fixed += tb.fixByReducedCost(cutoff() - z)
		}

		j, v := tb.mostFractional()
		if j < 0 {
			x := tb.integerSolution()
			if obj := md.objective(x); obj < best {
				best, incumbent = obj, x
				slog.Debug("new incumbent", "problem", p.Name, "objective", obj, "node", nodes, "open", queue.Len())
			}
			continue
		}

		// El hermano a la cola; el hijo hacia el que redondea, sobre el mismo tableau.
		sibling := snapshot(tb, z)
		if v-math.Floor(v) >= 0.5 {
			sibling.hi[j] = math.Floor(v)
			tb.lo[j] = math.Ceil(v)
		} else {
			sibling.lo[j] = math.Ceil(v)
			tb.hi[j] = math.Floor(v)
		}
		heap.Push(&queue, sibling)
		current = tb
	}

	if incumbent == nil {
		return finish(domain.StatusInfeasible), nil
	}
	return finish(domain.StatusOptimal), nil
}

// validate comprueba dimensiones, índices y cotas.
func validate(p domain.Problem) error {
	if len(p.Objective) != len(p.Variables) {
		return fmt.Errorf("objective has %d coefficients for %d variables", len(p.Objective), len(p.Variables))
	}
	for i, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Variables) {
				return fmt.Errorf("constraint %d (%s): variable index %d out of range", i, c.Name, t.Var)
			}
		}
	}
	for j, v := range p.Variables {
		lo, hi := v.Bounds()
		if math.IsInf(lo, -1) || math.IsNaN(lo) {
			return fmt.Errorf("variable %d (%s): lower bound must be finite", j, v.Name)
		}
		if math.IsNaN(hi) {
			return fmt.Errorf("variable %d (%s): upper bound is NaN", j, v.Name)
		}
	}
	return nil
}

// rootBounds construye las cotas iniciales; las enteras se redondean hacia dentro.
func rootBounds(p domain.Problem) (lo, hi []float64) {
	n := len(p.Variables)
	lo, hi = make([]float64, n), make([]float64, n)
	for j, v := range p.Variables {
		l, h := v.Bounds()
		if v.Kind != domain.Continuous {
			l = math.Ceil(l - intTol)
			if !math.IsInf(h, 1) {
				h = math.Floor(h + intTol)
			}
		}
		lo[j], hi[j] = l, h
	}
	return lo, hi
}

// openNode es un nodo pendiente: sus cotas y la base óptima del padre.
type openNode struct {
	bound  float64 // objetivo de la relajación del padre
	seq    int
	lo, hi []float64
	head   []int
	status []varStatus
}

func snapshot(tb *tableau, bound float64) *openNode {
	return &openNode{
		bound:  bound,
		lo:     append([]float64(nil), tb.lo...),
		hi:     append([]float64(nil), tb.hi...),
		head:   append([]int(nil), tb.head...),
		status: append([]varStatus(nil), tb.status...),
	}
}

// restore reconstruye el tableau desde la base guardada. Si B resulta
// singular se vuelve a la base de lógicas con las mismas cotas.
func (nd *openNode) restore(md *model) *tableau {
	tb := allocTableau(md)
	copy(tb.lo, nd.lo)
	copy(tb.hi, nd.hi)
	copy(tb.head, nd.head)
	copy(tb.status, nd.status)
	if err := tb.refactor(); err != nil {
		slog.Debug("basis refactor failed, using slack basis", "err", err)
		tb.slackBasis()
	}
	return tb
}

// nodeQueue es una cola de prioridad por cota; a igual cota, el más antiguo.
type nodeQueue struct {
	items []*openNode
	seq   int
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.bound != b.bound {
		return a.bound < b.bound
	}
	return a.seq < b.seq
}

func (q *nodeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *nodeQueue) Push(x any) {
	nd := x.(*openNode)
	nd.seq = q.seq
	q.seq++
	q.items = append(q.items, nd)
}

func (q *nodeQueue) Pop() any {
	last := len(q.items) - 1
	nd := q.items[last]
	q.items[last] = nil
	q.items = q.items[:last]
	return nd
}
