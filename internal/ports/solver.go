package ports

import (
	"context"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// MilpSolver resuelve programas lineales enteros mixtos.
type MilpSolver interface {
	// Solve devuelve la solución con su estado. Un timeout o la cancelación del
	// ctx se reportan como domain.StatusTimedOut, no como error; el error queda
	// para problemas mal formados o fallos internos del motor.
	Solve(ctx context.Context, problem domain.Problem) (domain.Solution, error)
}
