package ports

import (
	"context"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// PlayerProvider obtiene el pool completo de jugadores de la temporada.
type PlayerProvider interface {
	// FetchPlayers devuelve un snapshot de todos los jugadores. Los registros
	// que no se pueden mapear (posición desconocida) se descartan.
	FetchPlayers(ctx context.Context) ([]domain.PlayerRecord, error)
}
