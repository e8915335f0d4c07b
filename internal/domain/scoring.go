package domain

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pesos de la mezcla de riesgo de rotación: los minutos reales pesan más que
// el flag de disponibilidad.
const (
	minutesRiskWeight = 0.6
	statusRiskWeight  = 0.4

	// fullMatchMinutes es la referencia de "titular en todos los partidos".
	fullMatchMinutes = 90.0
)

// FeatureRange es el mínimo y máximo de una estadística sobre el pool.
type FeatureRange struct {
	Min float64
	Max float64
}

// Normalize lleva v a [0,1] dentro del rango. Si el rango es degenerado
// (todos iguales) devuelve 0.5.
func (r FeatureRange) Normalize(v float64) float64 {
	if r.Max == r.Min {
		return 0.5
	}
	return (v - r.Min) / (r.Max - r.Min)
}

// PoolStats son las estadísticas calculadas una sola vez sobre todo el pool.
type PoolStats struct {
	Count               int
	MeanMinutes         float64
	MaxMinutes          float64
	MaxMinutesReference float64 // 90 × max / mean; 0 si la distribución es degenerada

	// DegenerateMinutes es true cuando la media de minutos es 0 (pool vacío o
	// nadie ha jugado). En ese caso minutesRisk = 1 para todos.
	DegenerateMinutes bool

	UnknownStatuses int // registros con código de estado fuera del vocabulario
	InvalidCosts    int // registros con coste <= 0, excluidos de los rankings de valor

	Ranges map[RadarFeature]FeatureRange
}

// ScoredPool es el resultado de ScorePool: jugadores puntuados en el mismo
// orden que la entrada, más las estadísticas del pool.
type ScoredPool struct {
	Players []ScoredPlayer
	Stats   PoolStats
}

// ScorePool convierte el pool completo en ScoredPlayers.
//
// Las estadísticas relativas al pool (media y máximo de minutos) se calculan
// primero sobre todos los registros, así que el resultado de un jugador depende
// del resto del pool. La entrada no se modifica.
//
// Fórmulas:
//
//	maxMinutesReference = 90 × max(minutes) / mean(minutes)
//	minutesRisk         = clamp(1 − minutes / maxMinutesReference, 0, 1)
//	rotationRisk        = 0.6 × minutesRisk + 0.4 × statusRisk
//	projectedScore      = totalPoints × (1 − rotationRisk)
//	valuePerMillion     = projectedScore / (cost / 10)
func ScorePool(records []PlayerRecord) ScoredPool {
	stats := computeMinutesStats(records)

	players := make([]ScoredPlayer, len(records))
	for i, r := range records {
		players[i] = scorePlayer(r, stats)
		if r.Status.IsUnknown() {
			stats.UnknownStatuses++
		}
		if !players[i].ValueValid {
			stats.InvalidCosts++
		}
	}

	stats.Ranges = featureRanges(players)
	return ScoredPool{Players: players, Stats: stats}
}

// MinutesRisk calcula el riesgo por minutos respecto a la referencia del pool.
// Con una distribución degenerada devuelve 1 (riesgo máximo).
func MinutesRisk(minutes int, stats PoolStats) float64 {
	if stats.DegenerateMinutes || stats.MaxMinutesReference <= 0 {
		return 1.0
	}
	return clamp01(1 - float64(minutes)/stats.MaxMinutesReference)
}

// RotationRisk mezcla el riesgo por minutos y por estado.
func RotationRisk(minutesRisk, statusRisk float64) float64 {
	return clamp01(minutesRiskWeight*minutesRisk + statusRiskWeight*statusRisk)
}

// ProjectedScore descuenta los puntos históricos por el riesgo de rotación.
func ProjectedScore(totalPoints int, rotationRisk float64) float64 {
	return float64(totalPoints) * (1 - rotationRisk)
}

// ValuePerMillion devuelve los puntos proyectados por millón de coste.
// ok es false si el coste no es positivo.
func ValuePerMillion(projected float64, cost int) (value float64, ok bool) {
	if cost <= 0 {
		return 0, false
	}
	return projected / (float64(cost) / 10), true
}

// TopByProjected devuelve los n jugadores con mayor ProjectedScore.
// Empates: menor ID primero.
func TopByProjected(players []ScoredPlayer, n int) []ScoredPlayer {
	out := make([]ScoredPlayer, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProjectedScore != out[j].ProjectedScore {
			return out[i].ProjectedScore > out[j].ProjectedScore
		}
		return out[i].ID < out[j].ID
	})
	return head(out, n)
}

// TopByValue devuelve los n jugadores con mayor ValuePerMillion.
// Los jugadores con coste inválido no participan.
func TopByValue(players []ScoredPlayer, n int) []ScoredPlayer {
	out := make([]ScoredPlayer, 0, len(players))
	for _, p := range players {
		if p.ValueValid {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ValuePerMillion != out[j].ValuePerMillion {
			return out[i].ValuePerMillion > out[j].ValuePerMillion
		}
		return out[i].ID < out[j].ID
	})
	return head(out, n)
}

// IndexByID construye un mapa id → jugador.
func IndexByID(players []ScoredPlayer) map[int]ScoredPlayer {
	idx := make(map[int]ScoredPlayer, len(players))
	for _, p := range players {
		idx[p.ID] = p
	}
	return idx
}

// --- helpers internos ---

func computeMinutesStats(records []PlayerRecord) PoolStats {
	stats := PoolStats{Count: len(records)}
	if len(records) == 0 {
		stats.DegenerateMinutes = true
		return stats
	}

	minutes := make([]float64, len(records))
	for i, r := range records {
		minutes[i] = float64(r.Minutes)
	}
	stats.MeanMinutes = stat.Mean(minutes, nil)
	stats.MaxMinutes = floats.Max(minutes)

	if stats.MeanMinutes <= 0 {
		stats.DegenerateMinutes = true
		return stats
	}
	stats.MaxMinutesReference = fullMatchMinutes * stats.MaxMinutes / stats.MeanMinutes
	return stats
}

func scorePlayer(r PlayerRecord, stats PoolStats) ScoredPlayer {
	sp := ScoredPlayer{PlayerRecord: r}
	sp.StatusRisk = r.Status.Risk()
	sp.MinutesRisk = MinutesRisk(r.Minutes, stats)
	sp.RotationRisk = RotationRisk(sp.MinutesRisk, sp.StatusRisk)
	sp.ProjectedScore = ProjectedScore(r.TotalPoints, sp.RotationRisk)
	sp.ValuePerMillion, sp.ValueValid = ValuePerMillion(sp.ProjectedScore, r.Cost)
	return sp
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func head(players []ScoredPlayer, n int) []ScoredPlayer {
	if n >= 0 && len(players) > n {
		return players[:n]
	}
	return players
}
