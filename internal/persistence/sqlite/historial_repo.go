package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"example.com/cronograma/internal/domain"
)

const historialColumns = "id, tipo_cambio, actividad, detalle, usuario, fecha"

// HistorialRepository implements domain.HistorialRepository with SQLite.
type HistorialRepository struct {
	db *sql.DB
}

// NewHistorialRepository creates a new SQLite historial repository.
func NewHistorialRepository(db *sql.DB) *HistorialRepository {
	return &HistorialRepository{db: db}
}

// List returns entries newest first, paginated by limit and offset.
func (r *HistorialRepository) List(ctx context.Context, limit, offset int) ([]domain.Cambio, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return r.query(ctx, "SELECT "+historialColumns+" FROM historial ORDER BY fecha DESC LIMIT ? OFFSET ?", limit, offset)
}

// ListByDate returns the entries whose fecha falls on the given calendar date
// (YYYY-MM-DD), newest first.
func (r *HistorialRepository) ListByDate(ctx context.Context, date string) ([]domain.Cambio, error) {
	return r.query(ctx, "SELECT "+historialColumns+" FROM historial WHERE DATE(fecha) = ? ORDER BY fecha DESC", date)
}

func (r *HistorialRepository) query(ctx context.Context, query string, args ...any) ([]domain.Cambio, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list historial: %w", err)
	}
	defer rows.Close()

	cambios := []domain.Cambio{}
	for rows.Next() {
		var (
			cambio    domain.Cambio
			actividad sql.NullString
			detalle   sql.NullString
			usuario   sql.NullString
		)
		if err := rows.Scan(&cambio.ID, &cambio.TipoCambio, &actividad, &detalle, &usuario, &cambio.Fecha); err != nil {
			return nil, fmt.Errorf("failed to scan historial: %w", err)
		}
		cambio.Actividad = actividad.String
		cambio.Usuario = usuario.String
		cambio.Detalle = decodeDetalle(detalle.String)
		cambios = append(cambios, cambio)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list historial: %w", err)
	}

	return cambios, nil
}

// decodeDetalle turns the stored payload into JSON ready for the response.
// Empty columns become null; a payload that is not valid JSON (possible after
// restoring a hand-edited snapshot) is passed along as a JSON string rather
// than corrupting the whole response.
func decodeDetalle(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// Purge deletes entries with fecha older than before, or every entry when
// before is empty. Returns the number of rows removed.
func (r *HistorialRepository) Purge(ctx context.Context, before string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if before != "" {
		res, err = r.db.ExecContext(ctx, "DELETE FROM historial WHERE fecha < ?", before)
	} else {
		res, err = r.db.ExecContext(ctx, "DELETE FROM historial")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge historial: %w", err)
	}

	deleted, _ := res.RowsAffected()
	return deleted, nil
}

var _ domain.HistorialRepository = (*HistorialRepository)(nil)
