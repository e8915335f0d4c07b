package domain

import (
	"fmt"
	"sort"
)

// LeagueRules son las constantes de la liga que restringen la plantilla.
type LeagueRules struct {
	Budget    int // en décimas de millón, mismas unidades que Cost
	SquadSize int
	TeamCap   int              // máximo de jugadores por equipo real
	Quotas    map[Position]int // número exacto por posición
}

// DefaultLeagueRules devuelve las reglas oficiales de FPL.
func DefaultLeagueRules() LeagueRules {
	return LeagueRules{
		Budget:    1000,
		SquadSize: 15,
		TeamCap:   3,
		Quotas: map[Position]int{
			PositionGK:  2,
			PositionDEF: 5,
			PositionMID: 5,
			PositionFWD: 3,
		},
	}
}

// Validate comprueba que las reglas sean coherentes entre sí.
func (r LeagueRules) Validate() error {
	if r.Budget <= 0 {
		return fmt.Errorf("league rules: budget must be positive, got %d", r.Budget)
	}
	if r.SquadSize <= 0 {
		return fmt.Errorf("league rules: squad size must be positive, got %d", r.SquadSize)
	}
	if r.TeamCap <= 0 {
		return fmt.Errorf("league rules: team cap must be positive, got %d", r.TeamCap)
	}
	sum := 0
	for pos, q := range r.Quotas {
		if q < 0 {
			return fmt.Errorf("league rules: negative quota for %s", pos)
		}
		sum += q
	}
	if sum != r.SquadSize {
		return fmt.Errorf("league rules: quotas sum to %d, squad size is %d", sum, r.SquadSize)
	}
	return nil
}

// SquadSelection es una plantilla elegida: IDs distintos más los agregados derivados.
type SquadSelection struct {
	PlayerIDs      []int // ordenados ascendente
	PositionCounts map[Position]int
	TeamCounts     map[int]int
	TotalCost      int
	TotalProjected float64
}

// NewSquadSelection construye la selección a partir de los jugadores elegidos.
func NewSquadSelection(players []ScoredPlayer) SquadSelection {
	s := SquadSelection{
		PlayerIDs:      make([]int, 0, len(players)),
		PositionCounts: make(map[Position]int),
		TeamCounts:     make(map[int]int),
	}
	for _, p := range players {
		s.PlayerIDs = append(s.PlayerIDs, p.ID)
		s.PositionCounts[p.Position]++
		s.TeamCounts[p.TeamID]++
		s.TotalCost += p.Cost
		s.TotalProjected += p.ProjectedScore
	}
	sort.Ints(s.PlayerIDs)
	return s
}

// Size devuelve el número de jugadores.
func (s SquadSelection) Size() int {
	return len(s.PlayerIDs)
}

// Contains indica si el jugador forma parte de la plantilla.
func (s SquadSelection) Contains(id int) bool {
	i := sort.SearchInts(s.PlayerIDs, id)
	return i < len(s.PlayerIDs) && s.PlayerIDs[i] == id
}

// Validate comprueba tamaño, presupuesto, cuotas exactas y tope por equipo.
func (s SquadSelection) Validate(rules LeagueRules) error {
	if s.Size() != rules.SquadSize {
		return fmt.Errorf("squad: size %d, want %d", s.Size(), rules.SquadSize)
	}
	for i := 1; i < len(s.PlayerIDs); i++ {
		if s.PlayerIDs[i] == s.PlayerIDs[i-1] {
			return fmt.Errorf("squad: duplicate player %d", s.PlayerIDs[i])
		}
	}
	if s.TotalCost > rules.Budget {
		return fmt.Errorf("squad: cost %d exceeds budget %d", s.TotalCost, rules.Budget)
	}
	for pos, q := range rules.Quotas {
		if s.PositionCounts[pos] != q {
			return fmt.Errorf("squad: %d %s, want exactly %d", s.PositionCounts[pos], pos, q)
		}
	}
	for team, n := range s.TeamCounts {
		if n > rules.TeamCap {
			return fmt.Errorf("squad: %d players from team %d, cap is %d", n, team, rules.TeamCap)
		}
	}
	return nil
}
