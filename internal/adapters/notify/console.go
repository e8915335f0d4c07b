package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// table=false imprime solo el resumen compacto.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el output en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.RunReport) error {
	if report.Squad.Size() == 0 {
		fmt.Fprintf(c.out, "[%s] no squad available\n", stamp(report.StartedAt))
		return nil
	}

	index := domain.IndexByID(report.Pool)
	for _, p := range report.SquadPlayers {
		index[p.ID] = p
	}

	if !c.table {
		c.printCompact(report, index)
		return nil
	}

	c.printHeader(report)
	c.printSquad(report)
	c.printTransfers(report.Transfers, index)
	c.printRanking("TOP PROJECTED", report.TopProjected)
	c.printRanking("TOP VALUE (pts per £m)", report.TopValue)
	c.printComparison(report.Comparison)
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.RunReport, index map[int]domain.ScoredPlayer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] pool:%d squad £%.1fm proj:%.1f",
		stamp(r.StartedAt), r.Stats.Count, float64(r.Squad.TotalCost)/10, r.Squad.TotalProjected)
	if r.Incumbent {
		sb.WriteString(" (incumbent)")
	}
	for _, t := range r.Transfers {
		fmt.Fprintf(&sb, " | %s → %s %+.1f", playerName(index, t.OutID), playerName(index, t.InID), t.Gain)
	}
	if len(r.Transfers) == 0 {
		sb.WriteString(" | no transfers")
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printHeader(r domain.RunReport) {
	origin := "supplied"
	if r.Optimized {
		origin = "optimal"
		if r.Incumbent {
			origin = "incumbent (solver timed out)"
		}
	}
	fmt.Fprintf(c.out, "\n[%s] %d players from %s — squad: %s\n", stamp(r.StartedAt), r.Stats.Count, r.Source, origin)

	var warnings []string
	if r.Stats.DegenerateMinutes {
		warnings = append(warnings, "no minutes played in pool: minutes risk forced to 1.0")
	}
	if r.Stats.UnknownStatuses > 0 {
		warnings = append(warnings, fmt.Sprintf("%d unknown status codes (risk 0.5)", r.Stats.UnknownStatuses))
	}
	if r.Stats.InvalidCosts > 0 {
		warnings = append(warnings, fmt.Sprintf("%d players with invalid cost", r.Stats.InvalidCosts))
	}
	for _, w := range warnings {
		fmt.Fprintf(c.out, "  ⚠ %s\n", w)
	}
}

// printSquad imprime la plantilla ordenada por posición y proyección.
func (c *Console) printSquad(r domain.RunReport) {
	players := append([]domain.ScoredPlayer(nil), r.SquadPlayers...)
	sortByLineup(players)

	table := tablewriter.NewWriter(c.out)
	table.Header("Pos", "Player", "Team", "Cost", "Status", "Risk", "Proj", "Pts/£m")
	for _, p := range players {
		table.Append(
			string(p.Position),
			truncate(p.Name, 22),
			teamLabel(p),
			fmt.Sprintf("£%.1f", p.CostMillions()),
			p.Status.String(),
			fmt.Sprintf("%.2f", p.RotationRisk),
			fmt.Sprintf("%.1f", p.ProjectedScore),
			valueLabel(p),
		)
	}
	table.Footer("", "TOTAL", "", fmt.Sprintf("£%.1f", float64(r.Squad.TotalCost)/10), "", "",
		fmt.Sprintf("%.1f", r.Squad.TotalProjected), "")
	table.Render()
}

func (c *Console) printTransfers(transfers []domain.TransferSuggestion, index map[int]domain.ScoredPlayer) {
	fmt.Fprintln(c.out, "\n=== TRANSFERS ===")
	if len(transfers) == 0 {
		fmt.Fprintln(c.out, "  No low-risk replacements found.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Out", "In", "Pos", "Saving", "Gain")
	for i, t := range transfers {
		out, in := index[t.OutID], index[t.InID]
		table.Append(
			fmt.Sprintf("%d", i+1),
			playerName(index, t.OutID),
			playerName(index, t.InID),
			string(out.Position),
			fmt.Sprintf("£%.1f", float64(out.Cost-in.Cost)/10),
			fmt.Sprintf("%+.1f", t.Gain),
		)
	}
	table.Render()

	for _, t := range transfers {
		if t.Gain <= 0 {
			fmt.Fprintln(c.out, "  Note: suggestions with gain ≤ 0 do not improve the squad.")
			break
		}
	}
}

func (c *Console) printRanking(title string, players []domain.ScoredPlayer) {
	if len(players) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n=== %s ===\n", title)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Player", "Pos", "Team", "Cost", "Proj", "Pts/£m")
	for i, p := range players {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(p.Name, 22),
			string(p.Position),
			teamLabel(p),
			fmt.Sprintf("£%.1f", p.CostMillions()),
			fmt.Sprintf("%.1f", p.ProjectedScore),
			valueLabel(p),
		)
	}
	table.Render()
}

// printComparison imprime el radar como tabla: una columna por jugador con
// el valor crudo y el normalizado.
func (c *Console) printComparison(profiles []domain.PlayerProfile) {
	if len(profiles) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n=== COMPARISON (raw / normalized) ===")

	header := []any{"Feature"}
	for _, pr := range profiles {
		header = append(header, truncate(pr.Player.Name, 18))
	}
	table := tablewriter.NewWriter(c.out)
	table.Header(header...)

	for i, f := range domain.RadarFeatures() {
		row := []any{string(f)}
		for _, pr := range profiles {
			pt := pr.Radar[i]
			row = append(row, fmt.Sprintf("%.2f / %.2f", pt.Raw, pt.Normalized))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintHistory imprime las ejecuciones guardadas.
func (c *Console) PrintHistory(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded in this range.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Ran at", "Run", "Pool", "Cost", "Proj", "Squad", "Transfers")
	for _, r := range runs {
		moves := make([]string, len(r.Transfers))
		for i, t := range r.Transfers {
			moves[i] = fmt.Sprintf("%d→%d (%+.1f)", t.OutID, t.InID, t.Gain)
		}
		origin := "optimal"
		if !r.Optimized {
			origin = "supplied"
		}
		table.Append(
			r.RanAt.Local().Format("2006-01-02 15:04"),
			shortID(r.RunID),
			fmt.Sprintf("%d", r.PoolSize),
			fmt.Sprintf("£%.1f", float64(r.TotalCost)/10),
			fmt.Sprintf("%.1f", r.TotalProjected),
			fmt.Sprintf("%d (%s)", len(r.PlayerIDs), origin),
			strings.Join(moves, ", "),
		)
	}
	table.Render()
}

// --- helpers ---

// sortByLineup ordena GK, DEF, MID, FWD y dentro de cada posición por proyección desc.
func sortByLineup(players []domain.ScoredPlayer) {
	order := make(map[domain.Position]int, 4)
	for i, pos := range domain.Positions() {
		order[pos] = i
	}
	sort.SliceStable(players, func(i, j int) bool {
		if order[players[i].Position] != order[players[j].Position] {
			return order[players[i].Position] < order[players[j].Position]
		}
		return players[i].ProjectedScore > players[j].ProjectedScore
	})
}

func playerName(index map[int]domain.ScoredPlayer, id int) string {
	if p, ok := index[id]; ok && p.Name != "" {
		return truncate(p.Name, 22)
	}
	return fmt.Sprintf("#%d", id)
}

func teamLabel(p domain.ScoredPlayer) string {
	if p.TeamName != "" {
		return p.TeamName
	}
	return fmt.Sprintf("T%d", p.TeamID)
}

func valueLabel(p domain.ScoredPlayer) string {
	if !p.ValueValid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", p.ValuePerMillion)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
