package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// Storage persiste el histórico de ejecuciones del asistente.
type Storage interface {
	// SaveRun persiste la plantilla y las sugerencias de un ciclo.
	SaveRun(ctx context.Context, report domain.RunReport) error

	// GetHistory devuelve las ejecuciones en el rango de tiempo dado, la más reciente primero.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
