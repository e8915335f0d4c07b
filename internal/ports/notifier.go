package ports

import (
	"context"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// Notifier presenta el resultado de un ciclo al usuario.
type Notifier interface {
	// Notify muestra la plantilla, los cambios sugeridos y los rankings.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, report domain.RunReport) error
}
