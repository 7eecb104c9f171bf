package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"example.com/cronograma/internal/backup"
	"example.com/cronograma/internal/domain"
	"example.com/cronograma/internal/persistence/sqlite"
)

func newTestHandler(repos Repositories) *Handler {
	return NewHandler(repos, nil, AutoBackup{}, zap.NewNop().Sugar())
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestListActividades(t *testing.T) {
	repo := &mockActividadRepo{
		actividades: []domain.Actividad{
			{ID: 1, Nombre: "Fertilización", Year: 2026, Semanas: []int{10, 11}},
			{ID: 2, Nombre: "Poda", Year: 2026, Semanas: []int{30}},
		},
	}
	h := newTestHandler(Repositories{Actividades: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/actividades", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var got []domain.Actividad
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 || got[0].Nombre != "Fertilización" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestCreateActividad(t *testing.T) {
	repo := &mockActividadRepo{nextID: 7}
	h := newTestHandler(Repositories{Actividades: repo})

	body := `{"nombre":"Abono","year":2026,"semanas":[8,9],"clase":"nutricion"}`
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 7 {
		t.Fatalf("expected id 7 got %d", resp.ID)
	}
	if repo.created == nil || repo.created.Nombre != "Abono" {
		t.Fatalf("create did not reach the repository: %+v", repo.created)
	}
}

func TestCreateActividadValidation(t *testing.T) {
	repo := &mockActividadRepo{createErr: domain.NewValidationError("nombre y año son requeridos")}
	h := newTestHandler(Repositories{Actividades: repo})

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades", strings.NewReader(`{}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "requeridos") {
		t.Fatalf("expected validation message, got %s", rr.Body.String())
	}
}

func TestCreateActividadMalformedBody(t *testing.T) {
	h := newTestHandler(Repositories{Actividades: &mockActividadRepo{}})

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades", strings.NewReader("{nope")))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestListActividadesByYear(t *testing.T) {
	repo := &mockActividadRepo{
		actividades: []domain.Actividad{{ID: 1, Nombre: "Poda", Year: 2027}},
	}
	h := newTestHandler(Repositories{Actividades: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/actividades/2027", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.listedYear != 2027 {
		t.Fatalf("expected year filter 2027 got %d", repo.listedYear)
	}
}

func TestListActividadesBadYear(t *testing.T) {
	h := newTestHandler(Repositories{Actividades: &mockActividadRepo{}})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/actividades/abc", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestMoveActividad(t *testing.T) {
	repo := &mockActividadRepo{}
	h := newTestHandler(Repositories{Actividades: repo})

	body := `{"id":3,"nuevasSemanas":[14,15],"usuario":"juan"}`
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades/mover", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.movedID != 3 || repo.movedUsuario != "juan" {
		t.Fatalf("move did not reach the repository: id=%d usuario=%q", repo.movedID, repo.movedUsuario)
	}
}

func TestMoveActividadToTargetWeek(t *testing.T) {
	repo := &mockActividadRepo{
		actividades: []domain.Actividad{
			{ID: 3, Nombre: "Fertilización", Year: 2026, Semanas: []int{10, 11, 24}},
		},
	}
	h := newTestHandler(Repositories{Actividades: repo})

	body := `{"id":3,"semanaDestino":14,"usuario":"juan"}`
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades/mover", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	want := []int{14, 15, 28}
	if len(repo.movedSemanas) != len(want) {
		t.Fatalf("moved semanas = %v, want %v", repo.movedSemanas, want)
	}
	for i := range want {
		if repo.movedSemanas[i] != want[i] {
			t.Fatalf("moved semanas = %v, want %v", repo.movedSemanas, want)
		}
	}
}

func TestMoveActividadTargetOutOfRange(t *testing.T) {
	h := newTestHandler(Repositories{Actividades: &mockActividadRepo{}})

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades/mover",
		strings.NewReader(`{"id":3,"semanaDestino":60}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestMoveActividadMissingFields(t *testing.T) {
	h := newTestHandler(Repositories{Actividades: &mockActividadRepo{}})

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades/mover", strings.NewReader(`{"id":3}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestMoveActividadNotFound(t *testing.T) {
	repo := &mockActividadRepo{moveErr: domain.ErrNotFound}
	h := newTestHandler(Repositories{Actividades: repo})

	body := `{"id":99,"nuevasSemanas":[1]}`
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades/mover", strings.NewReader(body)))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestDeleteActividad(t *testing.T) {
	repo := &mockActividadRepo{}
	h := newTestHandler(Repositories{Actividades: repo})

	rr := serve(h, httptest.NewRequest(http.MethodDelete, "/api/actividades/5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.deletedID != 5 {
		t.Fatalf("expected delete of id 5, got %d", repo.deletedID)
	}
}

func TestCreateActividadReal(t *testing.T) {
	repo := &mockRealRepo{nextID: 11}
	h := newTestHandler(Repositories{Reales: repo})

	body := `{"actividad":"Poda","lote":"L1","semana":3,"year":2026}`
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/actividades-reales", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListActividadesRealesFilters(t *testing.T) {
	repo := &mockRealRepo{}
	h := newTestHandler(Repositories{Reales: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/actividades-reales?year=2026&lote=L2", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.filter.Year != 2026 || repo.filter.Lote != "L2" {
		t.Fatalf("filter not forwarded: %+v", repo.filter)
	}
}

func TestListActividadesRealesByLote(t *testing.T) {
	repo := &mockRealRepo{}
	h := newTestHandler(Repositories{Reales: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/actividades-reales/lote/L4", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.listedLote != "L4" {
		t.Fatalf("expected lote L4, got %q", repo.listedLote)
	}
}

func TestHistorialPagination(t *testing.T) {
	repo := &mockHistorialRepo{}
	h := newTestHandler(Repositories{Historial: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/historial?limit=5&offset=10", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.limit != 5 || repo.offset != 10 {
		t.Fatalf("pagination not forwarded: limit=%d offset=%d", repo.limit, repo.offset)
	}
}

func TestHistorialPurge(t *testing.T) {
	repo := &mockHistorialRepo{purged: 4}
	h := newTestHandler(Repositories{Historial: repo})

	rr := serve(h, httptest.NewRequest(http.MethodDelete, "/api/historial?before=2026-01-01", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.before != "2026-01-01" {
		t.Fatalf("before not forwarded: %q", repo.before)
	}
	var resp struct {
		Eliminados int64 `json:"eliminados"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Eliminados != 4 {
		t.Fatalf("expected 4 eliminados got %d", resp.Eliminados)
	}
}

func TestLoteNotFound(t *testing.T) {
	repo := &mockLoteRepo{getErr: domain.ErrNotFound}
	h := newTestHandler(Repositories{Lotes: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/lotes/L99", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestLoteUpdate(t *testing.T) {
	repo := &mockLoteRepo{}
	h := newTestHandler(Repositories{Lotes: repo})

	body := `{"nombre":"Lote 2 renovado","estado":"renovacion"}`
	rr := serve(h, httptest.NewRequest(http.MethodPut, "/api/lotes/L2", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.updatedID != "L2" || repo.updated.Estado != "renovacion" {
		t.Fatalf("update not forwarded: id=%q %+v", repo.updatedID, repo.updated)
	}
}

func TestCalendario(t *testing.T) {
	repo := &mockActividadRepo{
		actividades: []domain.Actividad{
			{ID: 1, Nombre: "Cosecha", Year: 2026, Semanas: []int{40, 41, 42}, EsDeterminante: true},
			{ID: 2, Nombre: "Poda", Year: 2026, Semanas: []int{30}},
		},
	}
	h := newTestHandler(Repositories{Actividades: repo})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/calendario/2026", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp calendarioResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Year != 2026 || resp.TotalSemanas != 52 {
		t.Fatalf("unexpected calendar header: %+v", resp)
	}
	if len(resp.Meses) != 12 {
		t.Fatalf("expected 12 months got %d", len(resp.Meses))
	}
	if len(resp.SemanasDeterminantes) != 3 || resp.SemanasDeterminantes[0] != 40 {
		t.Fatalf("unexpected determinant weeks: %v", resp.SemanasDeterminantes)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(Repositories{})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "OK" {
		t.Fatalf("unexpected health payload: %v", resp)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(Repositories{})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/nada", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ruta no encontrada") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestBackupExportAndImport(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if err := sqlite.Init(db); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}

	engine := backup.NewEngine(db, t.TempDir(), 30, zap.NewNop().Sugar())
	repos := Repositories{
		Actividades: sqlite.NewActividadRepository(db),
		Reales:      sqlite.NewActividadRealRepository(db),
		Historial:   sqlite.NewHistorialRepository(db),
		Lotes:       sqlite.NewLoteRepository(db),
	}
	h := NewHandler(repos, engine, AutoBackup{}, zap.NewNop().Sugar())

	if _, err := repos.Actividades.Create(context.Background(), domain.NuevaActividad{
		Nombre: "Poda", Year: 2026, Semanas: []int{30},
	}); err != nil {
		t.Fatalf("failed to seed actividad: %v", err)
	}

	export := serve(h, httptest.NewRequest(http.MethodGet, "/api/backup/export", nil))
	if export.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", export.Code, export.Body.String())
	}
	if got := export.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", got)
	}

	if err := repos.Actividades.Delete(context.Background(), 1); err != nil {
		t.Fatalf("failed to delete actividad: %v", err)
	}

	imported := serve(h, httptest.NewRequest(http.MethodPost, "/api/backup/import", export.Body))
	if imported.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", imported.Code, imported.Body.String())
	}

	actividades, err := repos.Actividades.ListByYear(context.Background(), 2026)
	if err != nil {
		t.Fatalf("failed to list actividades: %v", err)
	}
	if len(actividades) != 1 || actividades[0].Nombre != "Poda" {
		t.Fatalf("restore did not bring the actividad back: %+v", actividades)
	}
}

func TestBackupImportRejectsInvalid(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if err := sqlite.Init(db); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}

	engine := backup.NewEngine(db, t.TempDir(), 30, zap.NewNop().Sugar())
	h := NewHandler(Repositories{}, engine, AutoBackup{}, zap.NewNop().Sugar())

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/backup/import", strings.NewReader(`{"data":{}}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBackupAuto(t *testing.T) {
	h := NewHandler(Repositories{}, nil, AutoBackup{
		Enabled:  true,
		Schedule: "0 2 * * *",
		Path:     "backups",
	}, zap.NewNop().Sugar())

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/backup/auto", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var resp AutoBackup
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Enabled || resp.Schedule != "0 2 * * *" {
		t.Fatalf("unexpected auto payload: %+v", resp)
	}
}

// --- mocks ---

type mockActividadRepo struct {
	actividades  []domain.Actividad
	nextID       int64
	created      *domain.NuevaActividad
	createErr    error
	moveErr      error
	movedID      int64
	movedSemanas []int
	movedUsuario string
	deletedID    int64
	listedYear   int
}

func (m *mockActividadRepo) List(ctx context.Context) ([]domain.Actividad, error) {
	return m.actividades, nil
}

func (m *mockActividadRepo) ListByYear(ctx context.Context, year int) ([]domain.Actividad, error) {
	m.listedYear = year
	return m.actividades, nil
}

func (m *mockActividadRepo) Get(ctx context.Context, id int64) (*domain.Actividad, error) {
	for i := range m.actividades {
		if m.actividades[i].ID == id {
			return &m.actividades[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockActividadRepo) Create(ctx context.Context, input domain.NuevaActividad) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.created = &input
	return m.nextID, nil
}

func (m *mockActividadRepo) Update(ctx context.Context, id int64, input domain.NuevaActividad) error {
	return nil
}

func (m *mockActividadRepo) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return nil
}

func (m *mockActividadRepo) Move(ctx context.Context, id int64, nuevasSemanas []int, usuario string) error {
	if m.moveErr != nil {
		return m.moveErr
	}
	m.movedID = id
	m.movedSemanas = nuevasSemanas
	m.movedUsuario = usuario
	return nil
}

type mockRealRepo struct {
	nextID     int64
	filter     domain.RealFilter
	listedLote string
}

func (m *mockRealRepo) List(ctx context.Context, filter domain.RealFilter) ([]domain.ActividadReal, error) {
	m.filter = filter
	return []domain.ActividadReal{}, nil
}

func (m *mockRealRepo) ListByLote(ctx context.Context, lote string) ([]domain.ActividadReal, error) {
	m.listedLote = lote
	return []domain.ActividadReal{}, nil
}

func (m *mockRealRepo) Create(ctx context.Context, input domain.NuevaActividadReal) (int64, error) {
	return m.nextID, nil
}

func (m *mockRealRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type mockHistorialRepo struct {
	limit  int
	offset int
	before string
	purged int64
}

func (m *mockHistorialRepo) List(ctx context.Context, limit, offset int) ([]domain.Cambio, error) {
	m.limit = limit
	m.offset = offset
	return []domain.Cambio{}, nil
}

func (m *mockHistorialRepo) ListByDate(ctx context.Context, date string) ([]domain.Cambio, error) {
	return []domain.Cambio{}, nil
}

func (m *mockHistorialRepo) Purge(ctx context.Context, before string) (int64, error) {
	m.before = before
	return m.purged, nil
}

type mockLoteRepo struct {
	getErr    error
	updatedID string
	updated   domain.LoteUpdate
}

func (m *mockLoteRepo) List(ctx context.Context) ([]domain.Lote, error) {
	return []domain.Lote{}, nil
}

func (m *mockLoteRepo) Get(ctx context.Context, id string) (*domain.Lote, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &domain.Lote{ID: id}, nil
}

func (m *mockLoteRepo) Update(ctx context.Context, id string, input domain.LoteUpdate) error {
	m.updatedID = id
	m.updated = input
	return nil
}
