// Package backup serialises the four schedule tables to versioned JSON
// snapshots and restores them atomically.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/cronograma/internal/domain"
	"example.com/cronograma/internal/observability"
)

// Version identifies the snapshot document format.
const Version = "1.0.0"

const (
	filePrefix = "backup-"
	fileSuffix = ".json"
)

// Engine reads and writes snapshots against the live database. Snapshot
// creation is read-only until the final file write, so a scheduled run and a
// manual export may safely overlap.
type Engine struct {
	db        *sql.DB
	dir       string
	retention int // days
	log       *zap.SugaredLogger
}

// NewEngine builds an Engine writing snapshots to dir, pruning files older
// than retentionDays after every successful snapshot.
func NewEngine(db *sql.DB, dir string, retentionDays int, log *zap.SugaredLogger) *Engine {
	return &Engine{db: db, dir: dir, retention: retentionDays, log: log}
}

// Snapshot is the persisted document: a timestamp, a format version and the
// full row arrays of the four tables. Encoded semanas and detalle fields stay
// in their stored TEXT form.
type Snapshot struct {
	Timestamp string       `json:"timestamp"`
	Version   string       `json:"version"`
	Data      SnapshotData `json:"data"`
}

// SnapshotData holds the per-table row arrays.
type SnapshotData struct {
	Actividades       []ActividadRow `json:"actividades"`
	ActividadesReales []RealRow      `json:"actividades_reales"`
	Historial         []HistorialRow `json:"historial"`
	Lotes             []LoteRow      `json:"lotes"`
}

// ActividadRow mirrors one actividades table row. Booleans stay as the 0/1
// integers SQLite stores.
type ActividadRow struct {
	ID             int64   `json:"id"`
	Nombre         string  `json:"nombre"`
	Year           int     `json:"year"`
	Semanas        *string `json:"semanas"`
	Clase          *string `json:"clase"`
	Descripcion    *string `json:"descripcion"`
	EsDeterminante int     `json:"es_determinante"`
	EsRenovacion   int     `json:"es_renovacion"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// RealRow mirrors one actividades_reales table row.
type RealRow struct {
	ID             int64   `json:"id"`
	Actividad      string  `json:"actividad"`
	Lote           string  `json:"lote"`
	Semana         int     `json:"semana"`
	Year           int     `json:"year"`
	FechaEjecucion *string `json:"fecha_ejecucion"`
	Notas          *string `json:"notas"`
	CreatedAt      string  `json:"created_at"`
}

// HistorialRow mirrors one historial table row.
type HistorialRow struct {
	ID         int64   `json:"id"`
	TipoCambio string  `json:"tipo_cambio"`
	Actividad  *string `json:"actividad"`
	Detalle    *string `json:"detalle"`
	Usuario    *string `json:"usuario"`
	Fecha      string  `json:"fecha"`
}

// LoteRow mirrors one lotes table row.
type LoteRow struct {
	ID       string   `json:"id"`
	Nombre   *string  `json:"nombre"`
	AreaHa   *float64 `json:"area_ha"`
	Arboles  *int     `json:"arboles"`
	Variedad *string  `json:"variedad"`
	EdadAnos *int     `json:"edad_anos"`
	Estado   *string  `json:"estado"`
	Notas    *string  `json:"notas"`
}

// Info describes one snapshot file on disk.
type Info struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
}

// Create captures all four tables into a new snapshot file and returns its
// path. Any table read failure aborts before a file is written, so a partial
// snapshot is never persisted. Retention pruning runs after a successful
// write.
func (e *Engine) Create(ctx context.Context) (string, error) {
	doc, err := e.capture(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now().UTC()
	name := filePrefix + sortableTimestamp(now) + fileSuffix
	path := filepath.Join(e.dir, name)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	e.log.Infow("snapshot created",
		"file", name,
		"actividades", len(doc.Data.Actividades),
		"actividades_reales", len(doc.Data.ActividadesReales),
		"historial", len(doc.Data.Historial),
		"lotes", len(doc.Data.Lotes),
	)
	observability.RecordSnapshot(now, int64(len(raw)))

	if _, err := e.Prune(e.retention); err != nil {
		e.log.Warnw("retention pruning failed", "error", err)
	}

	return path, nil
}

// sortableTimestamp renders an ISO timestamp with ':' and '.' replaced so the
// filename sorts chronologically and stays filesystem safe.
func sortableTimestamp(t time.Time) string {
	iso := t.Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

func (e *Engine) capture(ctx context.Context) (*Snapshot, error) {
	doc := &Snapshot{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Data: SnapshotData{
			Actividades:       []ActividadRow{},
			ActividadesReales: []RealRow{},
			Historial:         []HistorialRow{},
			Lotes:             []LoteRow{},
		},
	}

	var err error
	if doc.Data.Actividades, err = e.readActividades(ctx); err != nil {
		return nil, err
	}
	if doc.Data.ActividadesReales, err = e.readReales(ctx); err != nil {
		return nil, err
	}
	if doc.Data.Historial, err = e.readHistorial(ctx); err != nil {
		return nil, err
	}
	if doc.Data.Lotes, err = e.readLotes(ctx); err != nil {
		return nil, err
	}

	return doc, nil
}

func (e *Engine) readActividades(ctx context.Context) ([]ActividadRow, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, nombre, year, semanas, clase, descripcion, es_determinante, es_renovacion, created_at, updated_at FROM actividades")
	if err != nil {
		return nil, fmt.Errorf("failed to read actividades: %w", err)
	}
	defer rows.Close()

	out := []ActividadRow{}
	for rows.Next() {
		var (
			row                      ActividadRow
			semanas, clase, desc     sql.NullString
			determinante, renovacion bool
			created, updated         time.Time
		)
		if err := rows.Scan(&row.ID, &row.Nombre, &row.Year, &semanas, &clase, &desc,
			&determinante, &renovacion, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to read actividades: %w", err)
		}
		if determinante {
			row.EsDeterminante = 1
		}
		if renovacion {
			row.EsRenovacion = 1
		}
		row.Semanas = nullable(semanas)
		row.Clase = nullable(clase)
		row.Descripcion = nullable(desc)
		row.CreatedAt = formatStamp(created)
		row.UpdatedAt = formatStamp(updated)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read actividades: %w", err)
	}
	return out, nil
}

func (e *Engine) readReales(ctx context.Context) ([]RealRow, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, actividad, lote, semana, year, fecha_ejecucion, notas, created_at FROM actividades_reales")
	if err != nil {
		return nil, fmt.Errorf("failed to read actividades_reales: %w", err)
	}
	defer rows.Close()

	out := []RealRow{}
	for rows.Next() {
		var (
			row     RealRow
			fecha   sql.NullTime
			notas   sql.NullString
			created time.Time
		)
		if err := rows.Scan(&row.ID, &row.Actividad, &row.Lote, &row.Semana, &row.Year,
			&fecha, &notas, &created); err != nil {
			return nil, fmt.Errorf("failed to read actividades_reales: %w", err)
		}
		if fecha.Valid {
			s := fecha.Time.UTC().Format(time.RFC3339)
			row.FechaEjecucion = &s
		}
		row.Notas = nullable(notas)
		row.CreatedAt = formatStamp(created)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read actividades_reales: %w", err)
	}
	return out, nil
}

func (e *Engine) readHistorial(ctx context.Context) ([]HistorialRow, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, tipo_cambio, actividad, detalle, usuario, fecha FROM historial")
	if err != nil {
		return nil, fmt.Errorf("failed to read historial: %w", err)
	}
	defer rows.Close()

	out := []HistorialRow{}
	for rows.Next() {
		var (
			row                         HistorialRow
			actividad, detalle, usuario sql.NullString
			fecha                       time.Time
		)
		if err := rows.Scan(&row.ID, &row.TipoCambio, &actividad, &detalle, &usuario, &fecha); err != nil {
			return nil, fmt.Errorf("failed to read historial: %w", err)
		}
		row.Actividad = nullable(actividad)
		row.Detalle = nullable(detalle)
		row.Usuario = nullable(usuario)
		row.Fecha = formatStamp(fecha)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read historial: %w", err)
	}
	return out, nil
}

func (e *Engine) readLotes(ctx context.Context) ([]LoteRow, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, nombre, area_ha, arboles, variedad, edad_anos, estado, notas FROM lotes")
	if err != nil {
		return nil, fmt.Errorf("failed to read lotes: %w", err)
	}
	defer rows.Close()

	out := []LoteRow{}
	for rows.Next() {
		var (
			row              LoteRow
			nombre           sql.NullString
			areaHa           sql.NullFloat64
			arboles, edad    sql.NullInt64
			variedad, estado sql.NullString
			notas            sql.NullString
		)
		if err := rows.Scan(&row.ID, &nombre, &areaHa, &arboles, &variedad, &edad, &estado, &notas); err != nil {
			return nil, fmt.Errorf("failed to read lotes: %w", err)
		}
		row.Nombre = nullable(nombre)
		if areaHa.Valid {
			v := areaHa.Float64
			row.AreaHa = &v
		}
		if arboles.Valid {
			v := int(arboles.Int64)
			row.Arboles = &v
		}
		row.Variedad = nullable(variedad)
		if edad.Valid {
			v := int(edad.Int64)
			row.EdadAnos = &v
		}
		row.Estado = nullable(estado)
		row.Notas = nullable(notas)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lotes: %w", err)
	}
	return out, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// formatStamp renders a timestamp the way SQLite's CURRENT_TIMESTAMP stores
// it, so restored rows compare equal to the originals.
func formatStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// Restore replaces the contents of all four tables with the rows of the
// snapshot at path. Returns domain.ErrNotFound when the file is absent.
func (e *Engine) Restore(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	doc, err := Parse(raw)
	if err != nil {
		return err
	}

	e.log.Infow("restoring snapshot", "file", filepath.Base(path))
	return e.RestoreDocument(ctx, doc)
}

// Parse decodes and validates a snapshot document. Every one of the four
// table arrays must be present; a document missing one is rejected before any
// table is touched.
func Parse(raw []byte) (*Snapshot, error) {
	var probe struct {
		Timestamp string `json:"timestamp"`
		Version   string `json:"version"`
		Data      *struct {
			Actividades       *[]ActividadRow `json:"actividades"`
			ActividadesReales *[]RealRow      `json:"actividades_reales"`
			Historial         *[]HistorialRow `json:"historial"`
			Lotes             *[]LoteRow      `json:"lotes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, domain.NewValidationError("datos de backup inválidos")
	}
	if probe.Data == nil || probe.Data.Actividades == nil || probe.Data.ActividadesReales == nil ||
		probe.Data.Historial == nil || probe.Data.Lotes == nil {
		return nil, domain.NewValidationError("datos de backup inválidos")
	}

	return &Snapshot{
		Timestamp: probe.Timestamp,
		Version:   probe.Version,
		Data: SnapshotData{
			Actividades:       *probe.Data.Actividades,
			ActividadesReales: *probe.Data.ActividadesReales,
			Historial:         *probe.Data.Historial,
			Lotes:             *probe.Data.Lotes,
		},
	}, nil
}

// RestoreDocument wipes the four tables and reloads them from doc inside a
// single transaction. Insert order is lotes, actividades, actividades_reales,
// historial for reproducibility; any failure rolls the whole restore back.
func (e *Engine) RestoreDocument(ctx context.Context, doc *Snapshot) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"actividades", "actividades_reales", "historial", "lotes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, lote := range doc.Data.Lotes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lotes (id, nombre, area_ha, arboles, variedad, edad_anos, estado, notas) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			lote.ID, lote.Nombre, lote.AreaHa, lote.Arboles, lote.Variedad, lote.EdadAnos, lote.Estado, lote.Notas,
		); err != nil {
			return fmt.Errorf("failed to restore lotes: %w", err)
		}
	}

	for _, act := range doc.Data.Actividades {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO actividades (id, nombre, year, semanas, clase, descripcion, es_determinante, es_renovacion, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			act.ID, act.Nombre, act.Year, act.Semanas, act.Clase, act.Descripcion,
			act.EsDeterminante, act.EsRenovacion, act.CreatedAt, act.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to restore actividades: %w", err)
		}
	}

	for _, real := range doc.Data.ActividadesReales {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO actividades_reales (id, actividad, lote, semana, year, fecha_ejecucion, notas, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			real.ID, real.Actividad, real.Lote, real.Semana, real.Year, real.FechaEjecucion, real.Notas, real.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to restore actividades_reales: %w", err)
		}
	}

	for _, cambio := range doc.Data.Historial {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO historial (id, tipo_cambio, actividad, detalle, usuario, fecha) VALUES (?, ?, ?, ?, ?, ?)",
			cambio.ID, cambio.TipoCambio, cambio.Actividad, cambio.Detalle, cambio.Usuario, cambio.Fecha,
		); err != nil {
			return fmt.Errorf("failed to restore historial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}

	e.log.Infow("snapshot restored",
		"actividades", len(doc.Data.Actividades),
		"actividades_reales", len(doc.Data.ActividadesReales),
		"historial", len(doc.Data.Historial),
		"lotes", len(doc.Data.Lotes),
	)
	return nil
}

// Prune removes snapshot files whose modification time is older than days
// days, returning the number removed.
func (e *Engine) Prune(days int) (int, error) {
	entries, err := os.ReadDir(e.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list backup directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(e.dir, name)); err == nil {
				deleted++
			}
		}
	}

	if deleted > 0 {
		e.log.Infow("old snapshots pruned", "count", deleted, "retention_days", days)
	}
	return deleted, nil
}

// List returns the snapshot files on disk, newest first.
func (e *Engine) List() ([]Info, error) {
	entries, err := os.ReadDir(e.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backup directory: %w", err)
	}

	infos := []Info{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{Filename: name, Size: stat.Size(), Created: stat.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.After(infos[j].Created) })
	return infos, nil
}

// Dir returns the backup directory the engine writes to.
func (e *Engine) Dir() string {
	return e.dir
}
