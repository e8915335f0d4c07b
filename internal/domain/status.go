package domain

// StatusKind clasifica el código de disponibilidad de FPL.
type StatusKind int

// El valor cero es StatusUnknown: un registro sin estado no se considera disponible.
const (
	StatusUnknown StatusKind = iota
	StatusAvailable
	StatusDoubtful
	StatusInjured
	StatusSuspended
	StatusUnavailable
)

// unknownStatusRisk es el riesgo asignado a códigos fuera del vocabulario:
// desconocido no es seguro, pero tampoco es el máximo.
const unknownStatusRisk = 0.5

// Status es el estado de disponibilidad de un jugador. Para StatusUnknown
// conserva el código original para poder reportarlo.
type Status struct {
	Kind StatusKind
	Code string
}

// ParseStatus traduce el código de la API ("a", "d", "i", "s", "u").
// Cualquier otro código produce StatusUnknown con el código original.
func ParseStatus(code string) Status {
	switch code {
	case "a":
		return Status{Kind: StatusAvailable, Code: code}
	case "d":
		return Status{Kind: StatusDoubtful, Code: code}
	case "i":
		return Status{Kind: StatusInjured, Code: code}
	case "s":
		return Status{Kind: StatusSuspended, Code: code}
	case "u":
		return Status{Kind: StatusUnavailable, Code: code}
	}
	return Status{Kind: StatusUnknown, Code: code}
}

// Risk devuelve el riesgo de no jugar asociado al estado.
func (s Status) Risk() float64 {
	switch s.Kind {
	case StatusAvailable:
		return 0.0
	case StatusDoubtful:
		return 0.3
	case StatusInjured:
		return 0.7
	case StatusSuspended, StatusUnavailable:
		return 1.0
	}
	return unknownStatusRisk
}

// IsUnknown indica si el código no pertenece al vocabulario conocido.
func (s Status) IsUnknown() bool {
	return s.Kind == StatusUnknown
}

// String devuelve una etiqueta legible.
func (s Status) String() string {
	switch s.Kind {
	case StatusAvailable:
		return "available"
	case StatusDoubtful:
		return "doubtful"
	case StatusInjured:
		return "injured"
	case StatusSuspended:
		return "suspended"
	case StatusUnavailable:
		return "unavailable"
	}
	return "unknown(" + s.Code + ")"
}
