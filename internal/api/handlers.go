// Package api exposes the HTTP JSON surface of the cronograma service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/cronograma/internal/backup"
	"example.com/cronograma/internal/calendar"
	"example.com/cronograma/internal/domain"
)

// Repositories bundles the persistence interfaces the handlers depend on.
type Repositories struct {
	Actividades domain.ActividadRepository
	Reales      domain.ActividadRealRepository
	Historial   domain.HistorialRepository
	Lotes       domain.LoteRepository
}

// AutoBackup reports the scheduled-backup configuration over the API.
type AutoBackup struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Path     string `json:"path"`
}

// Handler coordinates HTTP requests with the repositories and the backup
// engine.
type Handler struct {
	repos     Repositories
	backups   *backup.Engine
	auto      AutoBackup
	log       *zap.SugaredLogger
	startedAt time.Time
}

// NewHandler builds a Handler.
func NewHandler(repos Repositories, backups *backup.Engine, auto AutoBackup, log *zap.SugaredLogger) *Handler {
	return &Handler{
		repos:     repos,
		backups:   backups,
		auto:      auto,
		log:       log,
		startedAt: time.Now(),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/actividades", h.actividades)
	mux.HandleFunc("/api/actividades/", h.actividadesSub)
	mux.HandleFunc("/api/actividades-reales", h.reales)
	mux.HandleFunc("/api/actividades-reales/", h.realesSub)
	mux.HandleFunc("/api/historial", h.historial)
	mux.HandleFunc("/api/historial/", h.historialByDate)
	mux.HandleFunc("/api/lotes", h.lotes)
	mux.HandleFunc("/api/lotes/", h.loteByID)
	mux.HandleFunc("/api/backup/export", h.backupExport)
	mux.HandleFunc("/api/backup/import", h.backupImport)
	mux.HandleFunc("/api/backup/list", h.backupList)
	mux.HandleFunc("/api/backup/auto", h.backupAuto)
	mux.HandleFunc("/api/calendario/", h.calendario)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/", h.notFound)
}

// --- actividades ---

type actividadRequest struct {
	Nombre         string `json:"nombre"`
	Year           int    `json:"year"`
	Semanas        []int  `json:"semanas"`
	Clase          string `json:"clase"`
	Descripcion    string `json:"descripcion"`
	EsDeterminante bool   `json:"es_determinante"`
	EsRenovacion   bool   `json:"es_renovacion"`
}

func (r actividadRequest) toInput() domain.NuevaActividad {
	return domain.NuevaActividad{
		Nombre:         r.Nombre,
		Year:           r.Year,
		Semanas:        r.Semanas,
		Clase:          r.Clase,
		Descripcion:    r.Descripcion,
		EsDeterminante: r.EsDeterminante,
		EsRenovacion:   r.EsRenovacion,
	}
}

func (h *Handler) actividades(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listActividades(w, r)
	case http.MethodPost:
		h.createActividad(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) actividadesSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/actividades/")
	if rest == "mover" {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		h.moveActividad(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		year, err := strconv.Atoi(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, "año inválido")
			return
		}
		h.listActividadesByYear(w, r, year)
	case http.MethodPut, http.MethodDelete:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id inválido")
			return
		}
		if r.Method == http.MethodPut {
			h.updateActividad(w, r, id)
		} else {
			h.deleteActividad(w, r, id)
		}
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) listActividades(w http.ResponseWriter, r *http.Request) {
	actividades, err := h.repos.Actividades.List(r.Context())
	if err != nil {
		h.serverError(w, err, "error al obtener actividades")
		return
	}
	writeJSON(w, http.StatusOK, actividades)
}

func (h *Handler) listActividadesByYear(w http.ResponseWriter, r *http.Request, year int) {
	actividades, err := h.repos.Actividades.ListByYear(r.Context(), year)
	if err != nil {
		h.serverError(w, err, "error al obtener actividades")
		return
	}
	writeJSON(w, http.StatusOK, actividades)
}

func (h *Handler) createActividad(w http.ResponseWriter, r *http.Request) {
	var req actividadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de petición inválido")
		return
	}

	id, err := h.repos.Actividades.Create(r.Context(), req.toInput())
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, err, "error al crear actividad")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": "actividad creada exitosamente",
	})
}

func (h *Handler) updateActividad(w http.ResponseWriter, r *http.Request, id int64) {
	var req actividadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de petición inválido")
		return
	}

	if err := h.repos.Actividades.Update(r.Context(), id, req.toInput()); err != nil {
		h.serverError(w, err, "error al actualizar actividad")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "actividad actualizada exitosamente"})
}

func (h *Handler) deleteActividad(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.repos.Actividades.Delete(r.Context(), id); err != nil {
		h.serverError(w, err, "error al eliminar actividad")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "actividad eliminada exitosamente"})
}

type moverRequest struct {
	ID            int64  `json:"id"`
	NuevasSemanas []int  `json:"nuevasSemanas"`
	SemanaDestino int    `json:"semanaDestino"`
	Usuario       string `json:"usuario"`
}

// moveActividad accepts either the explicit week set or a target week. With a
// target, the whole set shifts so its earliest week lands on the destination,
// the way a row drag lands on one column.
func (h *Handler) moveActividad(w http.ResponseWriter, r *http.Request) {
	var req moverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de petición inválido")
		return
	}
	if req.ID == 0 || (req.NuevasSemanas == nil && req.SemanaDestino == 0) {
		writeError(w, http.StatusBadRequest, "id y nuevas semanas son requeridas")
		return
	}

	nuevas := req.NuevasSemanas
	if nuevas == nil {
		if req.SemanaDestino < 1 || req.SemanaDestino > calendar.WeeksPerYear {
			writeError(w, http.StatusBadRequest, "semana destino fuera de rango")
			return
		}
		act, err := h.repos.Actividades.Get(r.Context(), req.ID)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "actividad no encontrada")
			return
		}
		if err != nil {
			h.serverError(w, err, "error al mover actividad")
			return
		}
		nuevas = calendar.ShiftWeeks(act.Semanas, calendar.OffsetTo(act.Semanas, req.SemanaDestino))
	}

	err := h.repos.Actividades.Move(r.Context(), req.ID, nuevas, req.Usuario)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "actividad no encontrada")
		return
	}
	if err != nil {
		h.serverError(w, err, "error al mover actividad")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "actividad movida exitosamente"})
}

// --- actividades reales ---

type actividadRealRequest struct {
	Actividad      string `json:"actividad"`
	Lote           string `json:"lote"`
	Semana         int    `json:"semana"`
	Year           int    `json:"year"`
	FechaEjecucion string `json:"fecha_ejecucion"`
	Notas          string `json:"notas"`
}

func (h *Handler) reales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listReales(w, r)
	case http.MethodPost:
		h.createReal(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) realesSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/actividades-reales/")
	if lote, ok := strings.CutPrefix(rest, "lote/"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		h.listRealesByLote(w, r, lote)
		return
	}

	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return
	}
	h.deleteReal(w, r, id)
}

func (h *Handler) listReales(w http.ResponseWriter, r *http.Request) {
	filter := domain.RealFilter{Lote: r.URL.Query().Get("lote")}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "año inválido")
			return
		}
		filter.Year = year
	}

	reales, err := h.repos.Reales.List(r.Context(), filter)
	if err != nil {
		h.serverError(w, err, "error al obtener actividades reales")
		return
	}
	writeJSON(w, http.StatusOK, reales)
}

func (h *Handler) listRealesByLote(w http.ResponseWriter, r *http.Request, lote string) {
	reales, err := h.repos.Reales.ListByLote(r.Context(), lote)
	if err != nil {
		h.serverError(w, err, "error al obtener actividades del lote")
		return
	}
	writeJSON(w, http.StatusOK, reales)
}

func (h *Handler) createReal(w http.ResponseWriter, r *http.Request) {
	var req actividadRealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de petición inválido")
		return
	}

	id, err := h.repos.Reales.Create(r.Context(), domain.NuevaActividadReal{
		Actividad:      req.Actividad,
		Lote:           req.Lote,
		Semana:         req.Semana,
		Year:           req.Year,
		FechaEjecucion: req.FechaEjecucion,
		Notas:          req.Notas,
	})
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, err, "error al registrar actividad real")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": "actividad real registrada exitosamente",
	})
}

func (h *Handler) deleteReal(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.repos.Reales.Delete(r.Context(), id); err != nil {
		h.serverError(w, err, "error al eliminar actividad real")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "actividad real eliminada exitosamente"})
}

// --- historial ---

func (h *Handler) historial(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listHistorial(w, r)
	case http.MethodDelete:
		h.purgeHistorial(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) listHistorial(w http.ResponseWriter, r *http.Request) {
	limit := 100
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	cambios, err := h.repos.Historial.List(r.Context(), limit, offset)
	if err != nil {
		h.serverError(w, err, "error al obtener historial")
		return
	}
	writeJSON(w, http.StatusOK, cambios)
}

func (h *Handler) historialByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	fecha := strings.TrimPrefix(r.URL.Path, "/api/historial/")
	cambios, err := h.repos.Historial.ListByDate(r.Context(), fecha)
	if err != nil {
		h.serverError(w, err, "error al obtener historial por fecha")
		return
	}
	writeJSON(w, http.StatusOK, cambios)
}

func (h *Handler) purgeHistorial(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repos.Historial.Purge(r.Context(), r.URL.Query().Get("before"))
	if err != nil {
		h.serverError(w, err, "error al limpiar historial")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "historial limpiado exitosamente",
		"eliminados": deleted,
	})
}

// --- lotes ---

type loteRequest struct {
	Nombre   string  `json:"nombre"`
	AreaHa   float64 `json:"area_ha"`
	Arboles  int     `json:"arboles"`
	Variedad string  `json:"variedad"`
	EdadAnos int     `json:"edad_anos"`
	Estado   string  `json:"estado"`
	Notas    string  `json:"notas"`
}

func (h *Handler) lotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	lotes, err := h.repos.Lotes.List(r.Context())
	if err != nil {
		h.serverError(w, err, "error al obtener lotes")
		return
	}
	writeJSON(w, http.StatusOK, lotes)
}

func (h *Handler) loteByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/lotes/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id de lote requerido")
		return
	}

	switch r.Method {
	case http.MethodGet:
		lote, err := h.repos.Lotes.Get(r.Context(), id)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lote no encontrado")
			return
		}
		if err != nil {
			h.serverError(w, err, "error al obtener lote")
			return
		}
		writeJSON(w, http.StatusOK, lote)
	case http.MethodPut:
		var req loteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo de petición inválido")
			return
		}
		err := h.repos.Lotes.Update(r.Context(), id, domain.LoteUpdate{
			Nombre:   req.Nombre,
			AreaHa:   req.AreaHa,
			Arboles:  req.Arboles,
			Variedad: req.Variedad,
			EdadAnos: req.EdadAnos,
			Estado:   req.Estado,
			Notas:    req.Notas,
		})
		if err != nil {
			h.serverError(w, err, "error al actualizar lote")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "lote actualizado exitosamente"})
	default:
		writeMethodNotAllowed(w)
	}
}

// --- backup ---

func (h *Handler) backupExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	path, err := h.backups.Create(r.Context())
	if err != nil {
		h.serverError(w, err, "error al exportar datos")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		h.serverError(w, err, "error al exportar datos")
		return
	}

	filename := fmt.Sprintf("cronograma-backup-%s.json", time.Now().UTC().Format(time.RFC3339))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) backupImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "datos de backup inválidos")
		return
	}

	// Stage the upload to a temp file so the restore path is the same one the
	// companion CLI exercises.
	tempPath := filepath.Join(h.backups.Dir(), "temp-restore-"+uuid.NewString()+".json")
	if err := os.MkdirAll(h.backups.Dir(), 0755); err != nil {
		h.serverError(w, err, "error al importar datos")
		return
	}
	if err := os.WriteFile(tempPath, body, 0644); err != nil {
		h.serverError(w, err, "error al importar datos")
		return
	}
	defer os.Remove(tempPath)

	if err := h.backups.Restore(r.Context(), tempPath); err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, err, "error al importar datos")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "datos importados exitosamente"})
}

func (h *Handler) backupList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	infos, err := h.backups.List()
	if err != nil {
		h.serverError(w, err, "error al listar backups")
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) backupAuto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.auto)
}

// --- calendario ---

type calendarioResponse struct {
	Year                 int                    `json:"year"`
	TotalSemanas         int                    `json:"total_semanas"`
	SemanaActual         int                    `json:"semana_actual"`
	Meses                []calendar.MonthBucket `json:"meses"`
	SemanasDeterminantes []int                  `json:"semanas_determinantes"`
}

// calendario serves the grid metadata the client renders: the month buckets,
// the current week and the determinant weeks of the requested year.
func (h *Handler) calendario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/calendario/")
	year, err := strconv.Atoi(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "año inválido")
		return
	}

	actividades, err := h.repos.Actividades.ListByYear(r.Context(), year)
	if err != nil {
		h.serverError(w, err, "error al obtener calendario")
		return
	}

	seen := map[int]bool{}
	determinantes := []int{}
	for _, act := range actividades {
		if !act.EsDeterminante {
			continue
		}
		for _, semana := range act.Semanas {
			if !seen[semana] {
				seen[semana] = true
				determinantes = append(determinantes, semana)
			}
		}
	}
	sort.Ints(determinantes)

	writeJSON(w, http.StatusOK, calendarioResponse{
		Year:                 year,
		TotalSemanas:         calendar.WeeksPerYear,
		SemanaActual:         calendar.CurrentWeek(),
		Meses:                calendar.Months(),
		SemanasDeterminantes: determinantes,
	})
}

// --- health / fallback ---

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Seconds(),
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.log.Warnw("ruta no encontrada", "method", r.Method, "path", r.URL.Path)
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "ruta no encontrada",
		"path":  r.URL.Path,
	})
}

// RecoverMiddleware converts handler panics into 500 JSON responses instead
// of tearing down the connection.
func RecoverMiddleware(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorw("panic recovered", "method", r.Method, "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "error interno del servidor")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// serverError logs the underlying failure and answers with a generic message,
// never surfacing storage detail to the client.
func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	h.log.Errorw(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "método no permitido")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
