package domain

import (
	"math"
	"time"
)

// Tipos del programa lineal entero que se entrega a un ports.MilpSolver.
// El dominio solo construye el problema e interpreta el estado; cómo se
// resuelve es cosa del adaptador.

// Sense es la dirección de la optimización.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

// VarKind es el dominio de una variable de decisión.
type VarKind int

const (
	Binary VarKind = iota
	Integer
	Continuous
)

// Variable describe una variable de decisión y sus cotas.
// Para Binary las cotas se fuerzan a [0,1]. Upper = +Inf indica sin cota.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// BinaryVar crea una variable binaria.
func BinaryVar(name string) Variable {
	return Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1}
}

// Bounds devuelve las cotas efectivas de la variable.
func (v Variable) Bounds() (lo, hi float64) {
	if v.Kind == Binary {
		return math.Max(0, v.Lower), math.Min(1, v.Upper)
	}
	return v.Lower, v.Upper
}

// ConstraintOp es el tipo de relación de una restricción.
type ConstraintOp int

const (
	LessEq ConstraintOp = iota
	Equal
	GreaterEq
)

func (op ConstraintOp) String() string {
	switch op {
	case LessEq:
		return "<="
	case Equal:
		return "="
	case GreaterEq:
		return ">="
	}
	return "?"
}

// Term es coeficiente × variable.
type Term struct {
	Var  int // índice en Problem.Variables
	Coef float64
}

// Constraint es Σ terms (op) RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Op    ConstraintOp
	RHS   float64
}

// Problem es un programa lineal entero mixto.
type Problem struct {
	Name        string
	Sense       Sense
	Variables   []Variable
	Objective   []float64 // un coeficiente por variable
	Constraints []Constraint
}

// SolveStatus es el resultado del solver.
type SolveStatus int

const (
	StatusOptimal SolveStatus = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
)

func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Solution es la respuesta del solver.
//
// Con StatusOptimal, Values tiene una entrada por variable. Con StatusTimedOut,
// Values contiene el mejor incumbente entero si existe (HasIncumbent).
type Solution struct {
	Status       SolveStatus
	Values       []float64
	Objective    float64
	HasIncumbent bool
	Nodes        int
	Elapsed      time.Duration
}
