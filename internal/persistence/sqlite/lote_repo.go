package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example.com/cronograma/internal/domain"
)

const loteColumns = "id, nombre, area_ha, arboles, variedad, edad_anos, estado, notas"

// LoteRepository implements domain.LoteRepository with SQLite.
type LoteRepository struct {
	db *sql.DB
}

// NewLoteRepository creates a new SQLite lote repository.
func NewLoteRepository(db *sql.DB) *LoteRepository {
	return &LoteRepository{db: db}
}

// List returns every lote ordered by id.
func (r *LoteRepository) List(ctx context.Context) ([]domain.Lote, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+loteColumns+" FROM lotes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list lotes: %w", err)
	}
	defer rows.Close()

	lotes := []domain.Lote{}
	for rows.Next() {
		lote, err := scanLote(rows.Scan)
		if err != nil {
			return nil, err
		}
		lotes = append(lotes, *lote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list lotes: %w", err)
	}

	return lotes, nil
}

// Get returns one lote or domain.ErrNotFound.
func (r *LoteRepository) Get(ctx context.Context, id string) (*domain.Lote, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+loteColumns+" FROM lotes WHERE id = ?", id)
	lote, err := scanLote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lote, nil
}

func scanLote(scan func(...any) error) (*domain.Lote, error) {
	var (
		lote     domain.Lote
		nombre   sql.NullString
		areaHa   sql.NullFloat64
		arboles  sql.NullInt64
		variedad sql.NullString
		edadAnos sql.NullInt64
		estado   sql.NullString
		notas    sql.NullString
	)
	if err := scan(&lote.ID, &nombre, &areaHa, &arboles, &variedad, &edadAnos, &estado, &notas); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lote: %w", err)
	}
	lote.Nombre = nombre.String
	lote.AreaHa = areaHa.Float64
	lote.Arboles = int(arboles.Int64)
	lote.Variedad = variedad.String
	lote.EdadAnos = int(edadAnos.Int64)
	lote.Estado = estado.String
	lote.Notas = notas.String

	return &lote, nil
}

// Update overwrites the mutable fields of a lote. The id itself is not
// editable, and missing ids are a silent no-op.
func (r *LoteRepository) Update(ctx context.Context, id string, input domain.LoteUpdate) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE lotes SET nombre = ?, area_ha = ?, arboles = ?, variedad = ?, edad_anos = ?, estado = ?, notas = ? WHERE id = ?",
		input.Nombre, input.AreaHa, input.Arboles, input.Variedad, input.EdadAnos, input.Estado, input.Notas, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update lote: %w", err)
	}
	return nil
}

var _ domain.LoteRepository = (*LoteRepository)(nil)
