package domain

import "time"

// PlayerProfile es un jugador con su perfil radar normalizado respecto al pool.
type PlayerProfile struct {
	Player ScoredPlayer
	Radar  []RadarPoint
}

// RunReport es el resultado completo de un ciclo del asistente: lo que se
// presenta al usuario y lo que se persiste.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Source    string // "api" o la ruta del fichero en dry-run

	Stats PoolStats
	Pool  []ScoredPlayer // pool completo puntuado, para resolver IDs al presentar

	// Squad es la plantilla optimizada o la suministrada por el usuario.
	Squad        SquadSelection
	SquadPlayers []ScoredPlayer // ordenados por posición y proyección
	Optimized    bool           // false si la plantilla vino de fuera
	Incumbent    bool           // true si el solver agotó el tiempo y se usó el incumbente

	Transfers []TransferSuggestion

	TopProjected []ScoredPlayer
	TopValue     []ScoredPlayer
	Comparison   []PlayerProfile
}

// RunSummary es una ejecución tal como se recupera del histórico.
type RunSummary struct {
	RunID          string
	RanAt          time.Time
	Source         string
	PoolSize       int
	PlayerIDs      []int
	TotalCost      int
	TotalProjected float64
	Optimized      bool
	Transfers      []TransferSuggestion
}
