package squad

import "github.com/alejandrodnm/fplbot/internal/domain"

// removeDominated elimina jugadores que nunca hacen falta para alcanzar el
// óptimo.
//
// q domina a p si juegan en la misma posición, q cuesta <= y proyecta >= que p
// (con desempate estricto por coste, proyección y luego ID). p se elimina si sus
// dominadores cubren al menos full + quota equipos distintos, donde
// full = (SquadSize−1)/TeamCap es el máximo de equipos completos que puede
// haber junto a p. Con esa cobertura siempre existe un dominador fuera de la
// plantilla cuyo equipo admite uno más, así que cambiar p por él mantiene la
// factibilidad sin empeorar el objetivo.
func removeDominated(players []domain.ScoredPlayer, rules domain.LeagueRules) []domain.ScoredPlayer {
	full := (rules.SquadSize - 1) / rules.TeamCap

	byPosition := make(map[domain.Position][]int)
	for i, p := range players {
		byPosition[p.Position] = append(byPosition[p.Position], i)
	}

	keep := make([]domain.ScoredPlayer, 0, len(players))
	for _, p := range players {
		need := full + rules.Quotas[p.Position]
		teams := make(map[int]struct{}, need)
		for _, j := range byPosition[p.Position] {
			q := players[j]
			if q.ID != p.ID && dominates(q, p) {
				teams[q.TeamID] = struct{}{}
				if len(teams) >= need {
					break
				}
			}
		}
		if len(teams) < need {
			keep = append(keep, p)
		}
	}
	return keep
}

// dominates es un orden parcial estricto: nunca q domina a p y p a q a la vez.
func dominates(q, p domain.ScoredPlayer) bool {
	if q.Cost > p.Cost || q.ProjectedScore < p.ProjectedScore {
		return false
	}
	return q.Cost < p.Cost || q.ProjectedScore > p.ProjectedScore || q.ID < p.ID
}
