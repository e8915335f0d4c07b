package storage

// sqlite.go — histórico de ejecuciones del asistente.
//
// Estrategia:
//   - `runs`: una fila por ejecución (uuid), con la clave de la plantilla usada.
//   - `squads` + `squad_picks`: UNA fila por plantilla distinta (clave = IDs
//     ordenados). Entre jornadas la plantilla óptima casi nunca cambia, así que
//     la mayoría de ejecuciones solo escriben la fila de `runs`.
//   - `transfers`: las sugerencias de cada ejecución, con su rango.
//   - Cache en memoria de claves ya guardadas para no reescribir picks.
//   - Prune automático al arrancar: runs > 90d y plantillas no vistas en 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    ran_at          DATETIME NOT NULL,
    source          TEXT     NOT NULL DEFAULT '',
    pool_size       INTEGER  NOT NULL DEFAULT 0,
    squad_key       TEXT     NOT NULL,
    total_cost      INTEGER  NOT NULL DEFAULT 0,
    total_projected REAL     NOT NULL DEFAULT 0,
    optimized       INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por plantilla distinta
CREATE TABLE IF NOT EXISTS squads (
    squad_key  TEXT PRIMARY KEY,
    first_seen DATETIME NOT NULL,
    last_seen  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS squad_picks (
    squad_key TEXT    NOT NULL,
    player_id INTEGER NOT NULL,
    name      TEXT,
    position  TEXT    NOT NULL,
    team_id   INTEGER NOT NULL,
    cost      INTEGER NOT NULL,
    PRIMARY KEY (squad_key, player_id)
);

CREATE TABLE IF NOT EXISTS transfers (
    run_id TEXT    NOT NULL,
    rank   INTEGER NOT NULL,
    out_id INTEGER NOT NULL,
    in_id  INTEGER NOT NULL,
    gain   REAL    NOT NULL,
    PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_at     ON runs(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_squads_last ON squads(last_seen DESC);
`

const retention = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	known map[string]struct{} // squad_key ya persistidas
	mu    sync.Mutex
	nowFn func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		known: make(map[string]struct{}),
		nowFn: time.Now,
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// SaveRun persiste la ejecución. Si report.RunID está vacío se genera uno.
// Los picks solo se escriben la primera vez que aparece una plantilla.
func (s *SQLiteStorage) SaveRun(ctx context.Context, report domain.RunReport) error {
	if report.Squad.Size() == 0 {
		return nil
	}

	runID := report.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ranAt := report.StartedAt.UTC()
	if report.StartedAt.IsZero() {
		ranAt = s.nowFn().UTC()
	}
	key := squadKey(report.Squad.PlayerIDs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	optimized := 0
	if report.Optimized {
		optimized = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, ran_at, source, pool_size, squad_key, total_cost, total_projected, optimized)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ranAt, report.Source, report.Stats.Count, key,
		report.Squad.TotalCost, report.Squad.TotalProjected, optimized,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO squads (squad_key, first_seen, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(squad_key) DO UPDATE SET last_seen = excluded.last_seen
	`, key, ranAt, ranAt); err != nil {
		return fmt.Errorf("storage.SaveRun: upsert squad: %w", err)
	}

	isNew := s.markKnown(key)
	if isNew {
		if err := insertPicks(ctx, tx, key, report); err != nil {
			s.forget(key)
			return err
		}
	}

	for i, t := range report.Transfers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transfers (run_id, rank, out_id, in_id, gain) VALUES (?, ?, ?, ?, ?)`,
			runID, i+1, t.OutID, t.InID, t.Gain,
		); err != nil {
			if isNew {
				s.forget(key)
			}
			return fmt.Errorf("storage.SaveRun: insert transfer %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isNew {
			s.forget(key)
		}
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las ejecuciones cuyo ran_at está en el rango dado,
// la más reciente primero.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, source, pool_size, squad_key, total_cost, total_projected, optimized
		FROM runs
		WHERE ran_at BETWEEN ? AND ?
		ORDER BY ran_at DESC, id
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var key string
		var optimized int
		if err := rows.Scan(&r.RunID, &r.RanAt, &r.Source, &r.PoolSize, &key,
			&r.TotalCost, &r.TotalProjected, &optimized); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		r.Optimized = optimized == 1
		r.PlayerIDs, err = parseSquadKey(key)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetHistory: run %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("storage.GetHistory: rows: %w", err)
	}
	rows.Close() // una sola conexión: hay que liberarla antes de la siguiente query

	for i := range runs {
		transfers, err := s.transfersFor(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Transfers = transfers
	}
	return runs, nil
}

// SquadPicks devuelve los jugadores guardados de una plantilla.
func (s *SQLiteStorage) SquadPicks(ctx context.Context, playerIDs []int) ([]domain.PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, position, team_id, cost
		FROM squad_picks WHERE squad_key = ? ORDER BY player_id
	`, squadKey(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("storage.SquadPicks: query: %w", err)
	}
	defer rows.Close()

	var picks []domain.PlayerRecord
	for rows.Next() {
		var p domain.PlayerRecord
		var pos string
		if err := rows.Scan(&p.ID, &p.Name, &pos, &p.TeamID, &p.Cost); err != nil {
			return nil, fmt.Errorf("storage.SquadPicks: scan row: %w", err)
		}
		p.Position = domain.Position(pos)
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func insertPicks(ctx context.Context, tx *sql.Tx, key string, report domain.RunReport) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO squad_picks (squad_key, player_id, name, position, team_id, cost)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare picks: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.SquadPlayers {
		if _, err := stmt.ExecContext(ctx, key, p.ID, p.Name, string(p.Position), p.TeamID, p.Cost); err != nil {
			return fmt.Errorf("storage.SaveRun: insert pick %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) transfersFor(ctx context.Context, runID string) ([]domain.TransferSuggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT out_id, in_id, gain FROM transfers WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: transfers %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.TransferSuggestion
	for rows.Next() {
		var t domain.TransferSuggestion
		if err := rows.Scan(&t.OutID, &t.InID, &t.Gain); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// markKnown registra la clave y devuelve true si no estaba.
func (s *SQLiteStorage) markKnown(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[key]; ok {
		return false
	}
	s.known[key] = struct{}{}
	return true
}

func (s *SQLiteStorage) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.known, key)
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.nowFn().UTC().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM transfers WHERE run_id IN (SELECT id FROM runs WHERE ran_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE ran_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM squad_picks WHERE squad_key IN (SELECT squad_key FROM squads WHERE last_seen < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM squads WHERE last_seen < ?`, cutoff)
}

// warmCache precarga las plantillas conocidas, evitando reescribir picks en
// la primera ejecución tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `SELECT squad_key FROM squads`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key string
		if rows.Scan(&key) == nil {
			s.known[key] = struct{}{}
		}
	}
}

// squadKey es la lista de IDs ordenados separados por comas.
func squadKey(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func parseSquadKey(key string) ([]int, error) {
	if key == "" {
		return nil, nil
	}
	parts := strings.Split(key, ",")
	ids := make([]int, len(parts))
	for i, p := range parts {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad squad key %q: %w", key, err)
		}
		ids[i] = id
	}
	return ids, nil
}
