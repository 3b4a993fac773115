// Package types holds the row shapes exchanged with the fragmentation backend.
// The backend client, the dashboard, and the demo backend all share these, so
// they live here.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a row identifier. The backend returns numeric ids for most tables but
// string ids for unified clients, so both decode into the same type.
type ID string

// UnmarshalJSON accepts a JSON number, string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Employee is one row of the vertically fragmented employee view.
type Employee struct {
	ID               ID      `json:"empleado_id"`
	FirstName        string  `json:"nombre"`
	LastName         string  `json:"apellido"`
	Role             string  `json:"cargo"`
	StoreCity        string  `json:"ciudad_tienda"`
	Salary           float64 `json:"salario"`
	HireDate         string  `json:"fecha_contratacion"`
	EmergencyContact string  `json:"contacto_emergencia"`
}

// Client is one row of the horizontally fragmented client view.
type Client struct {
	ID               ID     `json:"cliente_id"`
	FirstName        string `json:"nombre"`
	LastName         string `json:"apellido"`
	Email            string `json:"email"`
	Phone            string `json:"telefono"`
	Address          string `json:"direccion"`
	RegistrationCity string `json:"ciudad_registro"`
	CreatedAt        string `json:"fecha_creacion"`
}

// Promotion is one row of the bidirectionally replicated promotions table.
type Promotion struct {
	ID              ID      `json:"promocion_id"`
	Code            string  `json:"codigo_promo"`
	Description     string  `json:"descripcion"`
	DiscountPercent float64 `json:"descuento_porcentaje"`
	CreatedAt       string  `json:"fecha_creacion"`
	City            string  `json:"ciudad"`
}

// Movie is one row of the unidirectionally replicated movie catalog.
type Movie struct {
	ID        ID     `json:"pelicula_id"`
	Title     string `json:"titulo"`
	Genre     string `json:"genero"`
	Director  string `json:"director"`
	Rating    string `json:"clasificacion"`
	Synopsis  string `json:"sinopsis"`
	PosterURL string `json:"url_poster"`
	CreatedAt string `json:"fecha_creacion"`
}

// ErrorResponse is the error body the backend sends with non-2xx statuses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
