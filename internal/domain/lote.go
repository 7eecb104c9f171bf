package domain

import "context"

// Lote is a named field parcel with fixed agronomic attributes. Lotes are
// seeded once at initialization and only ever updated afterwards.
type Lote struct {
	ID       string  `json:"id"`
	Nombre   string  `json:"nombre"`
	AreaHa   float64 `json:"area_ha"`
	Arboles  int     `json:"arboles"`
	Variedad string  `json:"variedad"`
	EdadAnos int     `json:"edad_anos"`
	Estado   string  `json:"estado"`
	Notas    string  `json:"notas"`
}

// LoteUpdate carries the mutable fields of a lote. The id itself is not
// user editable.
type LoteUpdate struct {
	Nombre   string
	AreaHa   float64
	Arboles  int
	Variedad string
	EdadAnos int
	Estado   string
	Notas    string
}

// LoteRepository captures persistence operations for lotes.
type LoteRepository interface {
	// List returns every lote ordered by id.
	List(ctx context.Context) ([]Lote, error)
	// Get returns one lote or ErrNotFound.
	Get(ctx context.Context, id string) (*Lote, error)
	// Update overwrites the mutable fields. Missing ids are a silent no-op.
	Update(ctx context.Context, id string, input LoteUpdate) error
}
