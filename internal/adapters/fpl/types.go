package fpl

import (
	"bytes"
	"strconv"
)

// DTOs raw de bootstrap-static. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// bootstrapResponse es la respuesta de GET /bootstrap-static/.
type bootstrapResponse struct {
	Elements []element `json:"elements"`
	Teams    []team    `json:"teams"`
}

// element es un jugador. Las estadísticas de forma llegan como strings ("5.2").
type element struct {
	ID            int       `json:"id"`
	FirstName     string    `json:"first_name"`
	SecondName    string    `json:"second_name"`
	WebName       string    `json:"web_name"`
	Team          int       `json:"team"`
	ElementType   int       `json:"element_type"`
	NowCost       int       `json:"now_cost"`
	Minutes       int       `json:"minutes"`
	TotalPoints   int       `json:"total_points"`
	Status        string    `json:"status"`
	Form          flexFloat `json:"form"`
	PointsPerGame flexFloat `json:"points_per_game"`
	Creativity    flexFloat `json:"creativity"`
	Threat        flexFloat `json:"threat"`
}

type team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// flexFloat acepta tanto "5.2" como 5.2. Vacío, null o no numérico → 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
