package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/cronograma/internal/domain"
	"example.com/cronograma/internal/observability"
)

const actividadColumns = "id, nombre, year, semanas, clase, descripcion, es_determinante, es_renovacion, created_at, updated_at"

// ActividadRepository implements domain.ActividadRepository with SQLite.
type ActividadRepository struct {
	db *sql.DB
}

// NewActividadRepository creates a new SQLite actividad repository.
func NewActividadRepository(db *sql.DB) *ActividadRepository {
	return &ActividadRepository{db: db}
}

// List returns every actividad ordered by year then nombre.
func (r *ActividadRepository) List(ctx context.Context) ([]domain.Actividad, error) {
	return r.query(ctx, "SELECT "+actividadColumns+" FROM actividades ORDER BY year, nombre")
}

// ListByYear returns the actividades of one year ordered by nombre.
func (r *ActividadRepository) ListByYear(ctx context.Context, year int) ([]domain.Actividad, error) {
	return r.query(ctx, "SELECT "+actividadColumns+" FROM actividades WHERE year = ? ORDER BY nombre", year)
}

// Get returns one actividad or domain.ErrNotFound.
func (r *ActividadRepository) Get(ctx context.Context, id int64) (*domain.Actividad, error) {
	actividades, err := r.query(ctx, "SELECT "+actividadColumns+" FROM actividades WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(actividades) == 0 {
		return nil, domain.ErrNotFound
	}
	return &actividades[0], nil
}

func (r *ActividadRepository) query(ctx context.Context, query string, args ...any) ([]domain.Actividad, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actividades: %w", err)
	}
	defer rows.Close()

	actividades := []domain.Actividad{}
	for rows.Next() {
		act, err := scanActividad(rows)
		if err != nil {
			return nil, err
		}
		actividades = append(actividades, *act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list actividades: %w", err)
	}

	return actividades, nil
}

func scanActividad(rows *sql.Rows) (*domain.Actividad, error) {
	var (
		act         domain.Actividad
		semanas     sql.NullString
		clase       sql.NullString
		descripcion sql.NullString
	)
	if err := rows.Scan(&act.ID, &act.Nombre, &act.Year, &semanas, &clase, &descripcion,
		&act.EsDeterminante, &act.EsRenovacion, &act.CreatedAt, &act.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan actividad: %w", err)
	}

	decoded, err := decodeSemanas(semanas.String)
	if err != nil {
		return nil, err
	}
	act.Semanas = decoded
	act.Clase = clase.String
	act.Descripcion = descripcion.String

	return &act, nil
}

// Create persists a new actividad and returns its identity. Nombre and year
// are required; missing week sets default to empty and flags to false.
func (r *ActividadRepository) Create(ctx context.Context, input domain.NuevaActividad) (int64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}

	semanas, err := encodeSemanas(input.Semanas)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO actividades (nombre, year, semanas, clase, descripcion, es_determinante, es_renovacion) VALUES (?, ?, ?, ?, ?, ?, ?)",
		input.Nombre, input.Year, semanas, input.Clase, input.Descripcion, input.EsDeterminante, input.EsRenovacion,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create actividad: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read actividad id: %w", err)
	}
	return id, nil
}

// Update overwrites every mutable field and refreshes updated_at. An id that
// does not exist is a silent no-op: no existence check is performed.
func (r *ActividadRepository) Update(ctx context.Context, id int64, input domain.NuevaActividad) error {
	semanas, err := encodeSemanas(input.Semanas)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE actividades SET nombre = ?, year = ?, semanas = ?, clase = ?, descripcion = ?, es_determinante = ?, es_renovacion = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		input.Nombre, input.Year, semanas, input.Clase, input.Descripcion, input.EsDeterminante, input.EsRenovacion, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update actividad: %w", err)
	}
	return nil
}

// Delete removes the actividad. Missing ids are a silent no-op.
func (r *ActividadRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM actividades WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete actividad: %w", err)
	}
	return nil
}

// Move replaces the week set of an actividad and appends the matching "mover"
// historial entry. Both writes run in one transaction so the audit trail can
// never drift from the state change.
func (r *ActividadRepository) Move(ctx context.Context, id int64, nuevasSemanas []int, usuario string) error {
	if usuario == "" {
		usuario = domain.UsuarioSistema
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin move transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		nombre     string
		rawSemanas sql.NullString
	)
	err = tx.QueryRowContext(ctx, "SELECT nombre, semanas FROM actividades WHERE id = ?", id).
		Scan(&nombre, &rawSemanas)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load actividad %d: %w", id, err)
	}

	anteriores, err := decodeSemanas(rawSemanas.String)
	if err != nil {
		return err
	}

	encoded, err := encodeSemanas(nuevasSemanas)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE actividades SET semanas = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		encoded, id,
	); err != nil {
		return fmt.Errorf("failed to move actividad: %w", err)
	}

	detalle, err := json.Marshal(domain.DetalleMovimiento{
		SemanasAnteriores: anteriores,
		SemanasNuevas:     normalizeSemanas(nuevasSemanas),
	})
	if err != nil {
		return fmt.Errorf("failed to encode detalle: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO historial (tipo_cambio, actividad, detalle, usuario) VALUES (?, ?, ?, ?)",
		domain.CambioMover, nombre, string(detalle), usuario,
	); err != nil {
		return fmt.Errorf("failed to record historial: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit move: %w", err)
	}

	observability.RecordActividadMoved()
	return nil
}

func normalizeSemanas(semanas []int) []int {
	if semanas == nil {
		return []int{}
	}
	return semanas
}

var _ domain.ActividadRepository = (*ActividadRepository)(nil)
