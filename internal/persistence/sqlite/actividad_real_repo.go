package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"example.com/cronograma/internal/domain"
)

const realColumns = "id, actividad, lote, semana, year, fecha_ejecucion, notas, created_at"

// ActividadRealRepository implements domain.ActividadRealRepository with SQLite.
type ActividadRealRepository struct {
	db *sql.DB
}

// NewActividadRealRepository creates a new SQLite repository for executed
// activities.
func NewActividadRealRepository(db *sql.DB) *ActividadRealRepository {
	return &ActividadRealRepository{db: db}
}

// List returns executed activities matching the filter, ordered by year then
// semana. Filters combine with AND; zero values are ignored.
func (r *ActividadRealRepository) List(ctx context.Context, filter domain.RealFilter) ([]domain.ActividadReal, error) {
	query := "SELECT " + realColumns + " FROM actividades_reales WHERE 1=1"
	args := []any{}

	if filter.Year != 0 {
		query += " AND year = ?"
		args = append(args, filter.Year)
	}
	if filter.Lote != "" {
		query += " AND lote = ?"
		args = append(args, filter.Lote)
	}

	query += " ORDER BY year, semana"

	return r.query(ctx, query, args...)
}

// ListByLote returns every record of one lote ordered by year then semana.
func (r *ActividadRealRepository) ListByLote(ctx context.Context, lote string) ([]domain.ActividadReal, error) {
	return r.query(ctx, "SELECT "+realColumns+" FROM actividades_reales WHERE lote = ? ORDER BY year, semana", lote)
}

func (r *ActividadRealRepository) query(ctx context.Context, query string, args ...any) ([]domain.ActividadReal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actividades reales: %w", err)
	}
	defer rows.Close()

	reales := []domain.ActividadReal{}
	for rows.Next() {
		var (
			real domain.ActividadReal
			// DATE columns come back from the driver as time.Time
			fecha sql.NullTime
			notas sql.NullString
		)
		if err := rows.Scan(&real.ID, &real.Actividad, &real.Lote, &real.Semana, &real.Year,
			&fecha, &notas, &real.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan actividad real: %w", err)
		}
		if fecha.Valid {
			real.FechaEjecucion = fecha.Time.UTC().Format(time.RFC3339)
		}
		real.Notas = notas.String
		reales = append(reales, real)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list actividades reales: %w", err)
	}

	return reales, nil
}

// Create persists a new executed-activity record and returns its identity.
// FechaEjecucion defaults to the current instant when empty.
func (r *ActividadRealRepository) Create(ctx context.Context, input domain.NuevaActividadReal) (int64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}

	fecha := input.FechaEjecucion
	if fecha == "" {
		fecha = time.Now().UTC().Format(time.RFC3339)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO actividades_reales (actividad, lote, semana, year, fecha_ejecucion, notas) VALUES (?, ?, ?, ?, ?, ?)",
		input.Actividad, input.Lote, input.Semana, input.Year, fecha, input.Notas,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create actividad real: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read actividad real id: %w", err)
	}
	return id, nil
}

// Delete removes the record. Missing ids are a silent no-op.
func (r *ActividadRealRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM actividades_reales WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete actividad real: %w", err)
	}
	return nil
}

var _ domain.ActividadRealRepository = (*ActividadRealRepository)(nil)
