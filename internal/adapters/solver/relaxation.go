package solver

// relaxation.go — relajación LP de un nodo: simplex dual sobre un tableau
// denso con cotas.
//
// Cada restricción i recibe una variable lógica r_i = Σ a_ij x_j con las cotas
// del operador (<=: (-inf, rhs]; >=: [rhs, +inf); =: [rhs, rhs]). El sistema
// queda [A | −I]·(x, r) = 0 y todas las restricciones pasan a ser cotas de
// columna, así que ramificar o fijar variables no añade filas.
//
// El tableau T = B⁻¹[A | −I] vive en un mat.Dense. La base de lógicas es dual
// factible por construcción; un hijo del branch-and-bound solo endurece cotas
// y arranca desde la base óptima del padre (warm start), con lo que suele
// necesitar muy pocos pivotes.

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

const (
	feasTol  = 1e-9 // violación de cota tolerada, relativa a la cota
	pivotTol = 1e-9
	dualTol  = 1e-9

	// bigM sustituye a una cota infinita cuando una variable no básica tiene
	// que apoyarse en ella. Acabar el LP con algo en ±bigM/2 = no acotado.
	bigM = 1e7

	maxPivots     = 5000
	refactorEvery = 100 // pivotes entre refactorizaciones de B⁻¹
)

var errStalled = errors.New("dual simplex did not converge")

type varStatus int8

const (
	atLower varStatus = iota
	atUpper
	freeZero // sin cotas, en 0
	basic
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpFailed
)

// model es el problema en forma de minimización sobre las columnas [x | r].
// Las cotas de las estructurales son las de la raíz; las de cada nodo viven
// en su tableau.
type model struct {
	n, m    int
	cost    []float64  // n+m, las lógicas cuestan 0
	a       *mat.Dense // m×(n+m) = [A | −I]; nil sin restricciones
	lo, hi  []float64  // cotas de las lógicas en [n, n+m)
	integer []bool

	// integralObjective: toda solución entera tiene objetivo entero, así que
	// basta con mejorar el incumbente en 1.
	integralObjective bool
}

// newModel normaliza un domain.Problem: maximización → minimización.
func newModel(p domain.Problem) *model {
	n, m := len(p.Variables), len(p.Constraints)
	md := &model{
		n:                 n,
		m:                 m,
		cost:              make([]float64, n+m),
		lo:                make([]float64, n+m),
		hi:                make([]float64, n+m),
		integer:           make([]bool, n),
		integralObjective: true,
	}
	for j, c := range p.Objective {
		if p.Sense == domain.Maximize {
			c = -c
		}
		md.cost[j] = c
		md.integer[j] = p.Variables[j].Kind != domain.Continuous
		if (md.integer[j] && c != math.Round(c)) || (!md.integer[j] && c != 0) {
			md.integralObjective = false
		}
	}
	if m == 0 {
		return md
	}
	md.a = mat.NewDense(m, n+m, nil)
	for i, c := range p.Constraints {
		for _, t := range mergeTerms(c.Terms) {
			md.a.Set(i, t.Var, t.Coef)
		}
		md.a.Set(i, n+i, -1)
		k := n + i
		switch c.Op {
		case domain.LessEq:
			md.lo[k], md.hi[k] = math.Inf(-1), c.RHS
		case domain.GreaterEq:
			md.lo[k], md.hi[k] = c.RHS, math.Inf(1)
		default:
			md.lo[k], md.hi[k] = c.RHS, c.RHS
		}
	}
	return md
}

// objective evalúa cᵀx en forma de minimización sobre las estructurales.
func (md *model) objective(x []float64) float64 {
	return floats.Dot(md.cost[:md.n], x[:md.n])
}

// tableau es el estado LP de un nodo.
type tableau struct {
	md     *model
	lo, hi []float64 // n+m
	head   []int     // head[i] = columna básica de la fila i
	status []varStatus
	t      *mat.Dense // m×(n+m) = B⁻¹[A | −I]
	d      []float64  // costes reducidos
	x      []float64
	xb     []float64
	pivots int // desde la última refactorización
}

// newTableau crea el tableau de la raíz con la base de lógicas.
// lo/hi son las cotas de las estructurales.
func newTableau(md *model, lo, hi []float64) *tableau {
	tb := allocTableau(md)
	copy(tb.lo, lo)
	copy(tb.hi, hi)
	copy(tb.lo[md.n:], md.lo[md.n:])
	copy(tb.hi[md.n:], md.hi[md.n:])
	tb.slackBasis()
	return tb
}

func allocTableau(md *model) *tableau {
	cols := md.n + md.m
	tb := &tableau{
		md:     md,
		lo:     make([]float64, cols),
		hi:     make([]float64, cols),
		head:   make([]int, md.m),
		status: make([]varStatus, cols),
		d:      make([]float64, cols),
		x:      make([]float64, cols),
		xb:     make([]float64, md.m),
	}
	if md.m > 0 {
		tb.t = mat.NewDense(md.m, cols, nil)
	}
	return tb
}

// slackBasis pone todas las lógicas en la base: T = [−A | I] y d = c. Cada
// estructural se apoya en la cota que hace su coste reducido dual factible.
func (tb *tableau) slackBasis() {
	md := tb.md
	copy(tb.d, md.cost)
	for i := range tb.head {
		tb.head[i] = md.n + i
		tb.status[md.n+i] = basic
	}
	if md.m > 0 {
		tb.t.Scale(-1, md.a)
	}
	for j := 0; j < md.n; j++ {
		tb.place(j)
	}
	tb.pivots = 0
}

func (tb *tableau) place(j int) {
	switch d := tb.d[j]; {
	case d > dualTol:
		tb.status[j] = atLower
	case d < -dualTol:
		tb.status[j] = atUpper
	case !math.IsInf(tb.lo[j], -1):
		tb.status[j] = atLower
	case !math.IsInf(tb.hi[j], 1):
		tb.status[j] = atUpper
	default:
		tb.status[j] = freeZero
	}
}

// refactor recalcula T y d desde head con una inversa fresca de B.
func (tb *tableau) refactor() error {
	md := tb.md
	copy(tb.d, md.cost)
	tb.pivots = 0
	if md.m == 0 {
		return nil
	}
	b := mat.NewDense(md.m, md.m, nil)
	for i, k := range tb.head {
		for r := 0; r < md.m; r++ {
			b.Set(r, i, md.a.At(r, k))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(b); err != nil {
		return fmt.Errorf("basis inverse: %w", err)
	}
	tb.t.Mul(&inv, md.a)
	for i, k := range tb.head {
		// columna básica = vector unitario exacto
		for r := 0; r < md.m; r++ {
			tb.t.Set(r, k, 0)
		}
		tb.t.Set(i, k, 1)
	}
	for i, k := range tb.head {
		if c := md.cost[k]; c != 0 {
			floats.AddScaled(tb.d, -c, tb.t.RawRowView(i))
		}
	}
	for _, k := range tb.head {
		tb.d[k] = 0
	}
	return nil
}

// value es el valor de una columna no básica.
func (tb *tableau) value(j int) float64 {
	switch tb.status[j] {
	case atLower:
		if math.IsInf(tb.lo[j], -1) {
			return -bigM
		}
		return tb.lo[j]
	case atUpper:
		if math.IsInf(tb.hi[j], 1) {
			return bigM
		}
		return tb.hi[j]
	}
	return 0
}

// computeX resuelve x_B = −Σ_N T_ij x_j.
func (tb *tableau) computeX() {
	for j := range tb.x {
		if tb.status[j] == basic {
			tb.x[j] = 0
		} else {
			tb.x[j] = tb.value(j)
		}
	}
	for i := range tb.head {
		tb.xb[i] = -floats.Dot(tb.t.RawRowView(i), tb.x)
	}
	for i, k := range tb.head {
		tb.x[k] = tb.xb[i]
	}
}

// solve ejecuta el simplex dual hasta que ninguna básica viole sus cotas.
func (tb *tableau) solve() lpStatus {
	for j := range tb.lo {
		if tb.lo[j] > tb.hi[j]+feasTol*(1+math.Abs(tb.hi[j])) {
			return lpInfeasible
		}
	}
	for iter := 0; ; iter++ {
		if tb.pivots >= refactorEvery {
			if err := tb.refactor(); err != nil {
				return lpFailed
			}
		}
		tb.computeX()

		r, toLower := tb.leavingRow()
		if r < 0 {
			return lpOptimal
		}
		if iter >= maxPivots {
			return lpFailed
		}
		q := tb.enteringColumn(r, toLower)
		if q < 0 {
			return lpInfeasible
		}
		leaving := tb.head[r]
		tb.pivot(r, q)
		if toLower {
			tb.status[leaving] = atLower
		} else {
			tb.status[leaving] = atUpper
		}
		tb.status[q] = basic
		tb.head[r] = q
	}
}

// leavingRow elige la básica con mayor violación de cota.
func (tb *tableau) leavingRow() (row int, toLower bool) {
	row, worst := -1, 0.0
	for i, k := range tb.head {
		v, lo, hi := tb.x[k], tb.lo[k], tb.hi[k]
		switch {
		case v < lo-feasTol*(1+math.Abs(lo)):
			if lo-v > worst {
				row, worst, toLower = i, lo-v, true
			}
		case v > hi+feasTol*(1+math.Abs(hi)):
			if v-hi > worst {
				row, worst, toLower = i, v-hi, false
			}
		}
	}
	return row, toLower
}

// enteringColumn es el ratio test dual sobre la fila r. Empates: mayor |a|.
func (tb *tableau) enteringColumn(r int, toLower bool) int {
	row := tb.t.RawRowView(r)
	q, best, bestAbs := -1, math.Inf(1), 0.0
	for j, a := range row {
		s := tb.status[j]
		if s == basic || math.Abs(a) <= pivotTol {
			continue
		}
		if s != freeZero && tb.lo[j] == tb.hi[j] {
			continue
		}
		var slack float64
		switch {
		case s == freeZero:
			slack = math.Abs(tb.d[j])
		case toLower && s == atLower && a < 0, !toLower && s == atLower && a > 0:
			slack = math.Max(0, tb.d[j])
		case toLower && s == atUpper && a > 0, !toLower && s == atUpper && a < 0:
			slack = math.Max(0, -tb.d[j])
		default:
			continue
		}
		ratio := slack / math.Abs(a)
		if ratio < best-1e-12 || (ratio <= best+1e-12 && math.Abs(a) > bestAbs) {
			q, best, bestAbs = j, ratio, math.Abs(a)
		}
	}
	return q
}

func (tb *tableau) pivot(r, q int) {
	prow := tb.t.RawRowView(r)
	floats.Scale(1/prow[q], prow)
	prow[q] = 1
	for i := range tb.head {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, prow)
			row[q] = 0
		}
	}
	if dq := tb.d[q]; dq != 0 {
		floats.AddScaled(tb.d, -dq, prow)
		tb.d[q] = 0
	}
	tb.pivots++
}

// unbounded indica que el óptimo se apoya en una cota artificial.
func (tb *tableau) unbounded() bool {
	for _, v := range tb.x {
		if math.Abs(v) >= bigM/2 {
			return true
		}
	}
	return false
}

func (tb *tableau) objective() float64 {
	return tb.md.objective(tb.x)
}

// mostFractional devuelve la estructural entera básica más alejada de un
// entero, o -1. Las no básicas están en cotas enteras.
func (tb *tableau) mostFractional() (int, float64) {
	best, bestDist := -1, intTol
	for _, k := range tb.head {
		if k >= tb.md.n || !tb.md.integer[k] {
			continue
		}
		frac := tb.x[k] - math.Floor(tb.x[k])
		if dist := math.Min(frac, 1-frac); dist > bestDist {
			best, bestDist = k, dist
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, tb.x[best]
}

// fixByReducedCost aprieta las cotas de las enteras no básicas cuyo coste
// reducido no deja moverlas más de gap sin superar el corte. Devuelve
// cuántas cotas cambió.
func (tb *tableau) fixByReducedCost(gap float64) int {
	fixed := 0
	for j := 0; j < tb.md.n; j++ {
		if !tb.md.integer[j] || tb.status[j] == basic || tb.lo[j] == tb.hi[j] {
			continue
		}
		d := tb.d[j]
		switch {
		case tb.status[j] == atLower && d > dualTol && !math.IsInf(tb.lo[j], -1):
			if k := math.Floor(gap/d + 1e-9); tb.lo[j]+k < tb.hi[j] {
				tb.hi[j] = tb.lo[j] + k
				fixed++
			}
		case tb.status[j] == atUpper && d < -dualTol && !math.IsInf(tb.hi[j], 1):
			if k := math.Floor(gap/-d + 1e-9); tb.hi[j]-k > tb.lo[j] {
				tb.lo[j] = tb.hi[j] - k
				fixed++
			}
		}
	}
	return fixed
}

// integerSolution devuelve las estructurales con las enteras redondeadas.
func (tb *tableau) integerSolution() []float64 {
	out := append([]float64(nil), tb.x[:tb.md.n]...)
	for j, isInt := range tb.md.integer {
		if isInt {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

// mergeTerms suma coeficientes repetidos de una misma variable.
func mergeTerms(terms []domain.Term) []domain.Term {
	seen := make(map[int]int, len(terms))
	out := make([]domain.Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := seen[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		seen[t.Var] = len(out)
		out = append(out, t)
	}
	return out
}
