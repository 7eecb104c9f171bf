// Package domain defines the entities and persistence contracts of the
// agricultural schedule.
package domain

import (
	"context"
	"time"
)

// Actividad is a planned farm task assigned to a set of calendar weeks of a
// year. Week numbers should lie in [1,52]; the data layer stores whatever the
// caller submits and leaves range enforcement to the presentation side.
type Actividad struct {
	ID             int64     `json:"id"`
	Nombre         string    `json:"nombre"`
	Year           int       `json:"year"`
	Semanas        []int     `json:"semanas"`
	Clase          string    `json:"clase"`
	Descripcion    string    `json:"descripcion"`
	EsDeterminante bool      `json:"es_determinante"`
	EsRenovacion   bool      `json:"es_renovacion"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NuevaActividad carries the fields accepted when creating an actividad.
type NuevaActividad struct {
	Nombre         string
	Year           int
	Semanas        []int
	Clase          string
	Descripcion    string
	EsDeterminante bool
	EsRenovacion   bool
}

// Validate ensures the required fields are present.
func (n NuevaActividad) Validate() error {
	if n.Nombre == "" {
		return NewValidationError("nombre y año son requeridos")
	}
	if n.Year == 0 {
		return NewValidationError("nombre y año son requeridos")
	}
	return nil
}

// DetalleMovimiento is the structured payload recorded in the historial for
// every move of an actividad.
type DetalleMovimiento struct {
	SemanasAnteriores []int `json:"semanas_anteriores"`
	SemanasNuevas     []int `json:"semanas_nuevas"`
}

// ActividadRepository captures persistence operations for planned activities.
type ActividadRepository interface {
	// List returns every actividad ordered by year then nombre.
	List(ctx context.Context) ([]Actividad, error)
	// ListByYear returns the actividades of one year ordered by nombre.
	ListByYear(ctx context.Context, year int) ([]Actividad, error)
	// Get returns one actividad or ErrNotFound.
	Get(ctx context.Context, id int64) (*Actividad, error)
	// Create persists a new actividad and returns its identity.
	Create(ctx context.Context, input NuevaActividad) (int64, error)
	// Update overwrites every mutable field of the actividad. Updating an id
	// that does not exist is a silent no-op.
	Update(ctx context.Context, id int64, input NuevaActividad) error
	// Delete removes the actividad. Missing ids are a silent no-op.
	Delete(ctx context.Context, id int64) error
	// Move replaces the week set and appends a "mover" historial entry in a
	// single transaction. Returns ErrNotFound if the actividad is missing.
	Move(ctx context.Context, id int64, nuevasSemanas []int, usuario string) error
}
