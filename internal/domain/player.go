package domain

// Position es la posición de un jugador en el campo.
type Position string

const (
	PositionGK  Position = "GK"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// Positions devuelve las cuatro posiciones en orden de alineación.
func Positions() []Position {
	return []Position{PositionGK, PositionDEF, PositionMID, PositionFWD}
}

// PositionFromElementType traduce el element_type de la API de FPL (1..4).
func PositionFromElementType(t int) (Position, bool) {
	switch t {
	case 1:
		return PositionGK, true
	case 2:
		return PositionDEF, true
	case 3:
		return PositionMID, true
	case 4:
		return PositionFWD, true
	}
	return "", false
}

// PlayerRecord es el registro crudo de un jugador tal como llega del proveedor de datos.
type PlayerRecord struct {
	ID          int
	Name        string
	Position    Position
	TeamID      int
	TeamName    string // abreviatura del equipo; solo presentación
	Cost        int    // décimas de millón: 55 = 5.5m
	Minutes     int
	TotalPoints int
	Status      Status

	// Estadísticas de forma; solo alimentan el radar de comparación.
	Form          float64
	PointsPerGame float64
	Creativity    float64
	Threat        float64
}

// CostMillions devuelve el coste en unidades enteras (millones).
func (p PlayerRecord) CostMillions() float64 {
	return float64(p.Cost) / 10
}

// ScoredPlayer es un PlayerRecord con las métricas de riesgo derivadas del pool.
type ScoredPlayer struct {
	PlayerRecord

	StatusRisk      float64 // [0,1]
	MinutesRisk     float64 // [0,1]
	RotationRisk    float64 // 0.6×minutes + 0.4×status
	ProjectedScore  float64 // totalPoints × (1 − rotationRisk)
	ValuePerMillion float64 // solo válido si ValueValid
	ValueValid      bool    // false cuando el coste es <= 0
}
