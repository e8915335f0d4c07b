package domain

import "sort"

// TransferSuggestion es un cambio propuesto: sale OutID, entra InID.
type TransferSuggestion struct {
	OutID int
	InID  int
	Gain  float64 // projected(in) − projected(out); puede ser <= 0
}

// TransferRules parametriza la búsqueda de cambios.
type TransferRules struct {
	RiskThreshold  float64 // solo entran jugadores con RotationRisk estrictamente menor
	MaxSuggestions int
}

// DefaultTransferRules devuelve umbral 0.5 y hasta 3 sugerencias.
func DefaultTransferRules() TransferRules {
	return TransferRules{RiskThreshold: 0.5, MaxSuggestions: 3}
}

// RecommendTransfers propone cambios para la plantilla actual.
//
// Para cada jugador de la plantilla los candidatos son jugadores de bajo riesgo
// fuera de la plantilla, de la misma posición y con coste <= al del saliente.
// Todos los pares se ordenan por ganancia descendente (desempate: OutID y luego
// InID ascendentes) y se aceptan de forma voraz sin reutilizar ni el saliente ni
// el entrante.
//
// La selección voraz NO resuelve el problema de asignación óptimo: un par
// localmente mejor puede bloquear dos pares mejores. Tampoco se descartan
// ganancias negativas; el caller filtra por signo si lo necesita.
//
// IDs de la plantilla que no existen en el pool se ignoran.
func RecommendTransfers(squadIDs []int, pool []ScoredPlayer, rules TransferRules) []TransferSuggestion {
	if len(squadIDs) == 0 || rules.MaxSuggestions <= 0 {
		return []TransferSuggestion{}
	}

	inSquad := make(map[int]bool, len(squadIDs))
	for _, id := range squadIDs {
		inSquad[id] = true
	}

	candidates := make([]ScoredPlayer, 0, len(pool))
	outgoing := make([]ScoredPlayer, 0, len(squadIDs))
	for _, p := range pool {
		if inSquad[p.ID] {
			outgoing = append(outgoing, p)
			continue
		}
		if p.RotationRisk < rules.RiskThreshold {
			candidates = append(candidates, p)
		}
	}

	var pairs []TransferSuggestion
	for _, out := range outgoing {
		for _, in := range candidates {
			if in.Position != out.Position || in.Cost > out.Cost {
				continue
			}
			pairs = append(pairs, TransferSuggestion{
				OutID: out.ID,
				InID:  in.ID,
				Gain:  in.ProjectedScore - out.ProjectedScore,
			})
		}
	}

	sortSuggestions(pairs)
	return acceptGreedy(pairs, rules.MaxSuggestions)
}

// sortSuggestions ordena por ganancia desc con desempate determinista.
func sortSuggestions(pairs []TransferSuggestion) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Gain != pairs[j].Gain {
			return pairs[i].Gain > pairs[j].Gain
		}
		if pairs[i].OutID != pairs[j].OutID {
			return pairs[i].OutID < pairs[j].OutID
		}
		return pairs[i].InID < pairs[j].InID
	})
}

// acceptGreedy recorre los pares ya ordenados y acepta los que no reutilizan
// ni saliente ni entrante, hasta limit.
func acceptGreedy(sorted []TransferSuggestion, limit int) []TransferSuggestion {
	usedOut := make(map[int]bool, limit)
	usedIn := make(map[int]bool, limit)
	accepted := make([]TransferSuggestion, 0, limit)

	for _, s := range sorted {
		if usedOut[s.OutID] || usedIn[s.InID] {
			continue
		}
		accepted = append(accepted, s)
		usedOut[s.OutID] = true
		usedIn[s.InID] = true
		if len(accepted) == limit {
			break
		}
	}
	return accepted
}
