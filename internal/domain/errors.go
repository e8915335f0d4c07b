package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoFeasibleSquad: ninguna combinación del pool cumple todas las restricciones.
	ErrNoFeasibleSquad = errors.New("no feasible squad")

	// ErrOptimizationTimeout: el solver no concluyó en el tiempo asignado.
	// Se devuelve envuelto en *TimeoutError.
	ErrOptimizationTimeout = errors.New("optimization timed out")

	// ErrUnboundedSquad: el solver reportó un objetivo no acotado.
	ErrUnboundedSquad = errors.New("squad objective is unbounded")

	// ErrEmptyPool: no hay jugadores que puntuar.
	ErrEmptyPool = errors.New("empty player pool")
)

// TimeoutError reporta un timeout del solver junto con la mejor plantilla
// encontrada hasta ese momento, si la hay. El caller decide si reintentar con
// más tiempo o aceptar el incumbente.
type TimeoutError struct {
	Elapsed   time.Duration
	Nodes     int
	Incumbent *SquadSelection
}

func (e *TimeoutError) Error() string {
	if e.Incumbent != nil {
		return fmt.Sprintf("%s after %s (%d nodes, incumbent %.2f)",
			ErrOptimizationTimeout, e.Elapsed, e.Nodes, e.Incumbent.TotalProjected)
	}
	return fmt.Sprintf("%s after %s (%d nodes, no incumbent)", ErrOptimizationTimeout, e.Elapsed, e.Nodes)
}

// Is permite errors.Is(err, ErrOptimizationTimeout).
func (e *TimeoutError) Is(target error) bool {
	return target == ErrOptimizationTimeout
}
