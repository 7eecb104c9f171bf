package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Change type tags recorded in the historial. The set is open ended; these
// are the values the service itself writes.
const (
	CambioMover    = "mover"
	CambioAgregar  = "agregar"
	CambioEliminar = "eliminar"
)

// UsuarioSistema is the actor recorded when no usuario is supplied.
const UsuarioSistema = "sistema"

// Cambio is one append-only audit record of a change made to an actividad.
// Detalle holds the structured payload already decoded from its stored form.
type Cambio struct {
	ID         int64           `json:"id"`
	TipoCambio string          `json:"tipo_cambio"`
	Actividad  string          `json:"actividad"`
	Detalle    json.RawMessage `json:"detalle"`
	Usuario    string          `json:"usuario"`
	Fecha      time.Time       `json:"fecha"`
}

// HistorialRepository captures persistence operations for the audit trail.
// Entries are never updated; they are appended and eventually purged.
type HistorialRepository interface {
	// List returns entries newest first, paginated by limit and offset.
	List(ctx context.Context, limit, offset int) ([]Cambio, error)
	// ListByDate returns the entries whose fecha falls on the given calendar
	// date (formatted YYYY-MM-DD), newest first.
	ListByDate(ctx context.Context, date string) ([]Cambio, error)
	// Purge deletes entries with fecha older than before, or every entry when
	// before is empty.
	Purge(ctx context.Context, before string) (int64, error)
}
