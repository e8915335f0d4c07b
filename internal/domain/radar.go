package domain

import "gonum.org/v1/gonum/floats"

// RadarFeature es una de las estadísticas del gráfico de comparación.
type RadarFeature string

const (
	FeatureForm          RadarFeature = "form"
	FeaturePointsPerGame RadarFeature = "points_per_game"
	FeatureMinutes       RadarFeature = "minutes"
	FeatureCreativity    RadarFeature = "creativity"
	FeatureThreat        RadarFeature = "threat"
	FeatureRotationRisk  RadarFeature = "rotation_risk"
)

// RadarFeatures devuelve las estadísticas en el orden en que se dibujan.
func RadarFeatures() []RadarFeature {
	return []RadarFeature{
		FeatureForm,
		FeaturePointsPerGame,
		FeatureMinutes,
		FeatureCreativity,
		FeatureThreat,
		FeatureRotationRisk,
	}
}

// RadarPoint es un valor crudo y su versión normalizada respecto al pool.
type RadarPoint struct {
	Feature    RadarFeature
	Raw        float64
	Normalized float64
}

// RadarProfile devuelve el perfil normalizado de un jugador usando los rangos
// calculados por ScorePool. El dibujo queda fuera de este paquete.
func RadarProfile(p ScoredPlayer, stats PoolStats) []RadarPoint {
	features := RadarFeatures()
	out := make([]RadarPoint, len(features))
	for i, f := range features {
		raw := featureValue(p, f)
		out[i] = RadarPoint{
			Feature:    f,
			Raw:        raw,
			Normalized: stats.Ranges[f].Normalize(raw),
		}
	}
	return out
}

func featureValue(p ScoredPlayer, f RadarFeature) float64 {
	switch f {
	case FeatureForm:
		return p.Form
	case FeaturePointsPerGame:
		return p.PointsPerGame
	case FeatureMinutes:
		return float64(p.Minutes)
	case FeatureCreativity:
		return p.Creativity
	case FeatureThreat:
		return p.Threat
	case FeatureRotationRisk:
		return p.RotationRisk
	}
	return 0
}

// featureRanges calcula min/max de cada estadística sobre el pool.
// floats.Min/Max hacen panic con slices vacíos: un pool vacío no tiene rangos.
func featureRanges(players []ScoredPlayer) map[RadarFeature]FeatureRange {
	features := RadarFeatures()
	ranges := make(map[RadarFeature]FeatureRange, len(features))
	if len(players) == 0 {
		return ranges
	}
	column := make([]float64, len(players))
	for _, f := range features {
		for i, p := range players {
			column[i] = featureValue(p, f)
		}
		ranges[f] = FeatureRange{Min: floats.Min(column), Max: floats.Max(column)}
	}
	return ranges
}
