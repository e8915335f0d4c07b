package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// FileProvider lee un bootstrap-static guardado en disco. Se usa en dry-run y
// para reproducir una jornada concreta sin red.
type FileProvider struct {
	path string
}

// NewFileProvider crea un FileProvider para la ruta dada.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// FetchPlayers implementa ports.PlayerProvider.
func (f *FileProvider) FetchPlayers(ctx context.Context) ([]domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fpl.FileProvider: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("fpl.FileProvider: read %q: %w", f.path, err)
	}
	var resp bootstrapResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("fpl.FileProvider: decode %q: %w", f.path, err)
	}
	players := mapBootstrap(resp)
	if len(players) == 0 {
		return nil, fmt.Errorf("fpl.FileProvider: %q: %w", f.path, domain.ErrEmptyPool)
	}
	return players, nil
}

// Path devuelve la ruta del fichero.
func (f *FileProvider) Path() string {
	return f.path
}
