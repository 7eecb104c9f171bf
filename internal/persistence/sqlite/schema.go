package sqlite

// SchemaSQL is the complete schema for fresh installs. It is the single
// source of truth: repository tests load it through GetSchemaSQL so test and
// production schemas cannot drift.
const SchemaSQL = `
-- Planned activities
CREATE TABLE IF NOT EXISTS actividades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre TEXT NOT NULL,
	year INTEGER NOT NULL,
	semanas TEXT, -- JSON array of week numbers
	clase TEXT,
	descripcion TEXT,
	es_determinante BOOLEAN DEFAULT 0,
	es_renovacion BOOLEAN DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Executed activities, associated to planned ones by name only
CREATE TABLE IF NOT EXISTS actividades_reales (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actividad TEXT NOT NULL,
	lote TEXT NOT NULL,
	semana INTEGER NOT NULL,
	year INTEGER NOT NULL,
	fecha_ejecucion DATE,
	notas TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Append-only change history
CREATE TABLE IF NOT EXISTS historial (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tipo_cambio TEXT NOT NULL, -- 'mover', 'agregar', 'eliminar'
	actividad TEXT,
	detalle TEXT, -- JSON payload with change details
	usuario TEXT,
	fecha DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Field plot reference data
CREATE TABLE IF NOT EXISTS lotes (
	id TEXT PRIMARY KEY, -- L1, L2, ...
	nombre TEXT,
	area_ha REAL,
	arboles INTEGER,
	variedad TEXT,
	edad_anos INTEGER,
	estado TEXT,
	notas TEXT
);

CREATE INDEX IF NOT EXISTS idx_actividades_year ON actividades(year);
CREATE INDEX IF NOT EXISTS idx_actividades_nombre ON actividades(nombre);
CREATE INDEX IF NOT EXISTS idx_actividades_reales_lote ON actividades_reales(lote);
CREATE INDEX IF NOT EXISTS idx_actividades_reales_year ON actividades_reales(year);
CREATE INDEX IF NOT EXISTS idx_historial_fecha ON historial(fecha);
`

// GetSchemaSQL returns the authoritative schema.
func GetSchemaSQL() string {
	return SchemaSQL
}
