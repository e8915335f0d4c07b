package fpl

import (
	"log/slog"
	"strings"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// mapBootstrap convierte la respuesta a domain.PlayerRecord. Los elementos con
// element_type fuera de 1..4 se descartan.
func mapBootstrap(resp bootstrapResponse) []domain.PlayerRecord {
	teamShort := make(map[int]string, len(resp.Teams))
	for _, t := range resp.Teams {
		teamShort[t.ID] = t.ShortName
	}

	players := make([]domain.PlayerRecord, 0, len(resp.Elements))
	skipped := 0
	for _, e := range resp.Elements {
		p, ok := mapElement(e, teamShort)
		if !ok {
			skipped++
			continue
		}
		players = append(players, p)
	}
	if skipped > 0 {
		slog.Warn("skipped elements with unknown position", "count", skipped)
	}
	return players
}

// mapElement convierte un element DTO a domain.PlayerRecord.
func mapElement(e element, teamShort map[int]string) (domain.PlayerRecord, bool) {
	pos, ok := domain.PositionFromElementType(e.ElementType)
	if !ok {
		return domain.PlayerRecord{}, false
	}

	name := e.WebName
	if name == "" {
		name = strings.TrimSpace(e.FirstName + " " + e.SecondName)
	}

	return domain.PlayerRecord{
		ID:            e.ID,
		Name:          name,
		Position:      pos,
		TeamID:        e.Team,
		TeamName:      teamShort[e.Team],
		Cost:          e.NowCost,
		Minutes:       e.Minutes,
		TotalPoints:   e.TotalPoints,
		Status:        domain.ParseStatus(e.Status),
		Form:          float64(e.Form),
		PointsPerGame: float64(e.PointsPerGame),
		Creativity:    float64(e.Creativity),
		Threat:        float64(e.Threat),
	}, true
}
