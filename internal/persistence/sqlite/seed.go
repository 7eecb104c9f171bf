package sqlite

import (
	"database/sql"
	"fmt"
)

// SeedLotes inserts the seven fixed lotes of the finca. Lotes are reference
// data seeded once: when the table already has rows the seed does nothing, so
// later edits through the API survive restarts.
func SeedLotes(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM lotes").Scan(&count); err != nil {
		return fmt.Errorf("seed lotes: %w", err)
	}
	if count > 0 {
		return nil
	}

	lotes := []struct {
		id       string
		nombre   string
		areaHa   float64
		arboles  int
		variedad string
		edadAnos int
		estado   string
		notas    sql.NullString
	}{
		{"L1", "Lote 1", 2.5, 12000, "Castillo", 5, "productivo", sql.NullString{String: "Lote principal", Valid: true}},
		{"L2", "Lote 2", 2.0, 10000, "Cenicafé 1", 4, "productivo", sql.NullString{}},
		{"L3", "Lote 3", 2.5, 12000, "Castillo", 6, "productivo", sql.NullString{}},
		{"L4", "Lote 4", 2.0, 10000, "Cenicafé 1", 3, "productivo", sql.NullString{}},
		{"L5", "Lote 5", 2.5, 12450, "Castillo", 5, "productivo", sql.NullString{}},
		{"L6", "Lote 6", 2.0, 10000, "Cenicafé 1", 7, "productivo", sql.NullString{String: "Requiere renovación pronto", Valid: true}},
		{"L7", "Lote 7", 1.5, 15000, "Castillo", 4, "productivo", sql.NullString{String: "Alta densidad", Valid: true}},
	}

	for _, l := range lotes {
		if _, err := db.Exec(
			"INSERT OR REPLACE INTO lotes (id, nombre, area_ha, arboles, variedad, edad_anos, estado, notas) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			l.id, l.nombre, l.areaHa, l.arboles, l.variedad, l.edadAnos, l.estado, l.notas,
		); err != nil {
			return fmt.Errorf("seed lotes: %w", err)
		}
	}

	return nil
}
