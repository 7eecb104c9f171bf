package domain

import (
	"context"
	"time"
)

// ActividadReal records a task actually executed on a specific lote and week.
// The actividad field is free text; no referential integrity to Actividad is
// enforced.
type ActividadReal struct {
	ID             int64     `json:"id"`
	Actividad      string    `json:"actividad"`
	Lote           string    `json:"lote"`
	Semana         int       `json:"semana"`
	Year           int       `json:"year"`
	FechaEjecucion string    `json:"fecha_ejecucion"`
	Notas          string    `json:"notas"`
	CreatedAt      time.Time `json:"created_at"`
}

// NuevaActividadReal carries the fields accepted when registering an executed
// activity. FechaEjecucion defaults to the current instant when empty.
type NuevaActividadReal struct {
	Actividad      string
	Lote           string
	Semana         int
	Year           int
	FechaEjecucion string
	Notas          string
}

// Validate ensures the required fields are present.
func (n NuevaActividadReal) Validate() error {
	if n.Actividad == "" || n.Lote == "" || n.Semana == 0 || n.Year == 0 {
		return NewValidationError("actividad, lote, semana y año son requeridos")
	}
	return nil
}

// RealFilter narrows List results. Zero values mean no filtering.
type RealFilter struct {
	Year int
	Lote string
}

// ActividadRealRepository captures persistence operations for executed
// activities.
type ActividadRealRepository interface {
	// List returns executed activities matching the filter, ordered by year
	// then semana.
	List(ctx context.Context, filter RealFilter) ([]ActividadReal, error)
	// ListByLote returns every record of one lote ordered by year then semana.
	ListByLote(ctx context.Context, lote string) ([]ActividadReal, error)
	// Create persists a new record and returns its identity.
	Create(ctx context.Context, input NuevaActividadReal) (int64, error)
	// Delete removes the record. Missing ids are a silent no-op.
	Delete(ctx context.Context, id int64) error
}
