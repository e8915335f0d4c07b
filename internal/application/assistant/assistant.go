package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/fplbot/internal/domain"
	"github.com/alejandrodnm/fplbot/internal/ports"
)

// Config contiene la configuración del asistente.
type Config struct {
	Interval   time.Duration // refresco del pool en modo continuo
	Once       bool          // un solo ciclo y salir
	Source     string        // etiqueta del origen de datos para el informe
	SquadIDs   []int         // plantilla actual; vacío = optimizar desde cero
	CompareIDs []int         // jugadores para el perfil radar
	TopN       int           // tamaño de los rankings (0 = sin rankings)
	Transfers  domain.TransferRules
}

// SquadOptimizer elige la plantilla óptima del pool puntuado.
// Lo implementa squad.Optimizer; se inyecta desde cmd/.
type SquadOptimizer interface {
	Optimize(ctx context.Context, players []domain.ScoredPlayer) (domain.SquadSelection, error)
	Rules() domain.LeagueRules
}

// Assistant es el orquestador: fetch → score → squad → transfers → notify → persist.
type Assistant struct {
	cfg       Config
	players   ports.PlayerProvider
	optimizer SquadOptimizer
	storage   ports.Storage
	notifier  ports.Notifier
	previous  []int // plantilla del ciclo anterior, para detectar cambios
	now       func() time.Time
}

// New crea un Assistant con todas las dependencias inyectadas. storage puede ser nil.
func New(
	cfg Config,
	players ports.PlayerProvider,
	optimizer SquadOptimizer,
	storage ports.Storage,
	notifier ports.Notifier,
) *Assistant {
	if cfg.Transfers.MaxSuggestions == 0 && cfg.Transfers.RiskThreshold == 0 {
		cfg.Transfers = domain.DefaultTransferRules()
	}
	return &Assistant{
		cfg:       cfg,
		players:   players,
		optimizer: optimizer,
		storage:   storage,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run ejecuta el loop hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo y devuelve su error.
func (a *Assistant) Run(ctx context.Context) error {
	slog.Info("assistant starting",
		"interval", a.cfg.Interval,
		"once", a.cfg.Once,
		"supplied_squad", len(a.cfg.SquadIDs) > 0,
	)

	if err := a.runCycle(ctx); err != nil {
		slog.Error("assistant cycle failed", "err", err)
		if a.cfg.Once {
			return err
		}
	}

	if a.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("assistant stopped")
			return nil
		case <-ticker.C:
			if err := a.runCycle(ctx); err != nil {
				slog.Error("assistant cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve el informe sin notificar ni persistir.
func (a *Assistant) RunOnce(ctx context.Context) (domain.RunReport, error) {
	return a.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (a *Assistant) runCycle(ctx context.Context) error {
	start := a.now()

	report, err := a.cycle(ctx)
	if err != nil {
		return err
	}

	a.logSquadChanges(report)

	if err := a.notifier.Notify(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if a.storage != nil {
		if err := a.storage.SaveRun(ctx, report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("assistant cycle complete",
		"run", report.RunID,
		"projected", fmt.Sprintf("%.1f", report.Squad.TotalProjected),
		"transfers", len(report.Transfers),
		"duration", a.now().Sub(start).Round(time.Millisecond),
	)
	return nil
}

// cycle construye el informe de un ciclo.
func (a *Assistant) cycle(ctx context.Context) (domain.RunReport, error) {
	started := a.now()

	records, err := a.players.FetchPlayers(ctx)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("assistant.cycle: fetch players: %w", err)
	}
	if len(records) == 0 {
		return domain.RunReport{}, fmt.Errorf("assistant.cycle: %w", domain.ErrEmptyPool)
	}

	pool := domain.ScorePool(records)
	logPoolWarnings(pool)

	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Source:    a.cfg.Source,
		Stats:     pool.Stats,
		Pool:      pool.Players,
	}

	if len(a.cfg.SquadIDs) > 0 {
		report.Squad, report.SquadPlayers = a.suppliedSquad(pool.Players)
	} else {
		sel, incumbent, err := a.optimize(ctx, pool.Players)
		if err != nil {
			return domain.RunReport{}, err
		}
		report.Squad = sel
		report.SquadPlayers = pick(pool.Players, sel.PlayerIDs)
		report.Optimized = true
		report.Incumbent = incumbent
	}

	report.Transfers = domain.RecommendTransfers(report.Squad.PlayerIDs, pool.Players, a.cfg.Transfers)

	if a.cfg.TopN > 0 {
		report.TopProjected = domain.TopByProjected(pool.Players, a.cfg.TopN)
		report.TopValue = domain.TopByValue(pool.Players, a.cfg.TopN)
	}
	report.Comparison = compare(pool, a.cfg.CompareIDs)

	return report, nil
}

// optimize delega en el optimizador. Un timeout con incumbente válido no es
// fatal: se usa el incumbente y se avisa.
func (a *Assistant) optimize(ctx context.Context, players []domain.ScoredPlayer) (domain.SquadSelection, bool, error) {
	sel, err := a.optimizer.Optimize(ctx, players)
	if err == nil {
		return sel, false, nil
	}

	var terr *domain.TimeoutError
	if errors.As(err, &terr) && terr.Incumbent != nil {
		slog.Warn("solver timed out, using best squad found",
			"elapsed", terr.Elapsed.Round(time.Millisecond),
			"nodes", terr.Nodes,
			"projected", fmt.Sprintf("%.1f", terr.Incumbent.TotalProjected),
		)
		return *terr.Incumbent, true, nil
	}
	return domain.SquadSelection{}, false, fmt.Errorf("assistant.cycle: optimize: %w", err)
}

// suppliedSquad resuelve los IDs configurados contra el pool. Los IDs que no
// existen se ignoran con un aviso; una plantilla que no cumple las reglas se
// usa igualmente (solo alimenta las sugerencias de cambios).
func (a *Assistant) suppliedSquad(players []domain.ScoredPlayer) (domain.SquadSelection, []domain.ScoredPlayer) {
	chosen := pick(players, a.cfg.SquadIDs)
	if missing := len(a.cfg.SquadIDs) - len(chosen); missing > 0 {
		slog.Warn("supplied squad ids not found in pool", "missing", missing)
	}
	sel := domain.NewSquadSelection(chosen)
	if err := sel.Validate(a.optimizer.Rules()); err != nil {
		slog.Warn("supplied squad breaks league rules", "err", err)
	}
	return sel, chosen
}

// logSquadChanges registra qué jugadores entran y salen respecto al ciclo anterior.
func (a *Assistant) logSquadChanges(r domain.RunReport) {
	ids := r.Squad.PlayerIDs
	if a.previous != nil {
		prev := make(map[int]bool, len(a.previous))
		for _, id := range a.previous {
			prev[id] = true
		}
		var in []int
		for _, id := range ids {
			if !prev[id] {
				in = append(in, id)
			}
			delete(prev, id)
		}
		if len(in) > 0 || len(prev) > 0 {
			out := make([]int, 0, len(prev))
			for id := range prev {
				out = append(out, id)
			}
			slog.Warn("SQUAD CHANGED", "in", in, "out", out,
				"projected", fmt.Sprintf("%.1f", r.Squad.TotalProjected))
		}
	}
	a.previous = ids
}

// logPoolWarnings reporta las condiciones no fatales del pool.
func logPoolWarnings(pool domain.ScoredPool) {
	if pool.Stats.DegenerateMinutes {
		slog.Warn("degenerate minutes distribution: minutes risk forced to 1.0", "players", pool.Stats.Count)
	}
	if pool.Stats.UnknownStatuses > 0 {
		codes := make(map[string]int)
		for _, p := range pool.Players {
			if p.Status.IsUnknown() {
				codes[p.Status.Code]++
			}
		}
		slog.Warn("unknown status codes mapped to risk 0.5", "count", pool.Stats.UnknownStatuses, "codes", codes)
	}
	if pool.Stats.InvalidCosts > 0 {
		slog.Warn("players with non-positive cost excluded from value ranking", "count", pool.Stats.InvalidCosts)
	}
}

// pick devuelve los jugadores con los IDs dados, en el orden del pool.
func pick(players []domain.ScoredPlayer, ids []int) []domain.ScoredPlayer {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]domain.ScoredPlayer, 0, len(ids))
	for _, p := range players {
		if want[p.ID] {
			out = append(out, p)
			delete(want, p.ID)
		}
	}
	return out
}

// compare construye los perfiles radar en el orden pedido.
func compare(pool domain.ScoredPool, ids []int) []domain.PlayerProfile {
	if len(ids) == 0 {
		return nil
	}
	index := domain.IndexByID(pool.Players)
	profiles := make([]domain.PlayerProfile, 0, len(ids))
	for _, id := range ids {
		p, ok := index[id]
		if !ok {
			slog.Warn("comparison player not found", "id", id)
			continue
		}
		profiles = append(profiles, domain.PlayerProfile{Player: p, Radar: domain.RadarProfile(p, pool.Stats)})
	}
	return profiles
}
