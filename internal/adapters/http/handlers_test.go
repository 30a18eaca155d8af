package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/metromap/internal/adapters/http"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/usecases"
)

// ---- Mocks ----

type mockMapRepo struct {
	maps     map[string]*domain.SavedMap
	listings []domain.MapListing
	total    int
}

func (m *mockMapRepo) Save(ctx context.Context, sm *domain.SavedMap) error {
	m.maps[sm.ID] = sm
	return nil
}

func (m *mockMapRepo) GetByID(ctx context.Context, id string) (*domain.SavedMap, error) {
	sm, ok := m.maps[id]
	if !ok {
		return nil, domain.ErrMapNotFound
	}
	return sm, nil
}

func (m *mockMapRepo) List(ctx context.Context, offset, limit int) ([]domain.MapListing, int, error) {
	return m.listings, m.total, nil
}

func (m *mockMapRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.maps[id]; !ok {
		return domain.ErrMapNotFound
	}
	delete(m.maps, id)
	return nil
}

type mockFetcher struct{}

func (mockFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if strings.Contains(path, "/s/") {
		return nil, errors.New("no such file")
	}
	return []byte(`<svg id="` + path + `"/>`), nil
}

// ---- Helpers ----

var (
	alex = map[string]float64{"lat": 52.5219, "lon": 13.4132}
	jann = map[string]float64{"lat": 52.5150, "lon": 13.4180}
	ostk = map[string]float64{"lat": 52.5030, "lon": 13.4690}
)

func newDeps(repo *mockMapRepo) *handler.Dependencies {
	editor := usecases.NewEditorService(nil, usecases.EditorOptions{
		Intn: func(int) int { return 0 },
		Now:  func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	deps := &handler.Dependencies{
		Editor: editor,
		Icons:  usecases.NewIconService(mockFetcher{}, 4),
		Naming: usecases.NewNamingService(editor, usecases.NewNameLookup(nil, []domain.NamedPlace{
			{Name: "Alexanderplatz", Location: domain.GeoPoint{Lat: 52.5219, Lon: 13.4132}},
		}, 400)),
	}
	if repo != nil {
		deps.Maps = usecases.NewMapService(repo, editor)
	}
	return deps
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := do(t, app, "POST", "/v1/sessions", map[string]string{"title": "Berlin"})
	expectStatus(t, resp, 201)
	return decode[usecases.SessionInfo](t, resp).ID
}

func placeLine(t *testing.T, app *fiber.App, id string, points ...map[string]float64) {
	t.Helper()
	for _, p := range points {
		expectStatus(t, do(t, app, "POST", "/v1/sessions/"+id+"/points", p), 200)
	}
}

// ---- Tests ----

func TestHealthHandler(t *testing.T) {
	app := setupApp(newDeps(nil))
	resp := do(t, app, "GET", "/v1/health", nil)
	expectStatus(t, resp, 200)

	body := decode[map[string]any](t, resp)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if body["sessions"] != float64(0) {
		t.Errorf("expected 0 sessions, got %v", body["sessions"])
	}
	features := body["features"].(map[string]any)
	if features["saved_maps"] != false || features["naming"] != true || features["live"] != false {
		t.Errorf("unexpected features %v", features)
	}
}

func TestReadyHandler_NothingConfigured(t *testing.T) {
	app := setupApp(newDeps(nil))
	resp := do(t, app, "GET", "/v1/ready", nil)
	expectStatus(t, resp, 200)

	body := decode[map[string]any](t, resp)
	checks := body["checks"].(map[string]any)
	if checks["database"] != "not configured" || checks["nats"] != "not configured" {
		t.Errorf("unexpected checks %v", checks)
	}
}

func TestCreateSession(t *testing.T) {
	app := setupApp(newDeps(nil))
	resp := do(t, app, "POST", "/v1/sessions", map[string]string{"title": "Berlin"})
	expectStatus(t, resp, 201)

	info := decode[usecases.SessionInfo](t, resp)
	if info.Title != "Berlin" || info.ID == "" {
		t.Errorf("unexpected session %+v", info)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/sessions/"+info.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	list := decode[map[string][]usecases.SessionInfo](t, do(t, app, "GET", "/v1/sessions", nil))
	if len(list["data"]) != 1 {
		t.Errorf("expected 1 session, got %d", len(list["data"]))
	}
}

func TestPlacePoint(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/points", alex)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Outcome != "created" || !res.Changed || res.StationID == 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("intent responses must not be cached, got %q", resp.Header.Get("Cache-Control"))
	}

	resp = do(t, app, "POST", "/v1/sessions/"+id+"/points", jann)
	res = decode[usecases.EditResult](t, resp)
	if len(res.Summary.Lines) != 1 || len(res.Summary.Lines[0].Stations) != 2 {
		t.Errorf("expected one line of two stations, got %+v", res.Summary.Lines)
	}
}

func TestPlacePoint_BadRequest(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)

	tests := []struct {
		name string
		body any
	}{
		{"missing lon", map[string]float64{"lat": 52.5}},
		{"latitude out of range", map[string]float64{"lat": 95, "lon": 13.4}},
		{"not an object", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, "POST", "/v1/sessions/"+id+"/points", tt.body)
			expectStatus(t, resp, 400)
			apiErr := decode[handler.APIError](t, resp)
			if apiErr.Code != "bad_request" || apiErr.RequestID == "" {
				t.Errorf("unexpected error body %+v", apiErr)
			}
		})
	}
}

func TestUnknownSession(t *testing.T) {
	app := setupApp(newDeps(nil))

	for _, path := range []string{"/v1/sessions/nope", "/v1/sessions/nope/summary", "/v1/sessions/nope/geojson"} {
		resp := do(t, app, "GET", path, nil)
		expectStatus(t, resp, 404)
		if apiErr := decode[handler.APIError](t, resp); apiErr.Code != "not_found" {
			t.Errorf("%s: expected not_found, got %+v", path, apiErr)
		}
	}
	expectStatus(t, do(t, app, "POST", "/v1/sessions/nope/undo", nil), 404)
}

func TestClickStation_ClosesLoop(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann, ostk)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/stations/1/click", nil)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Outcome != "closed_loop" || !res.Summary.Lines[0].Circle {
		t.Errorf("expected closed loop, got %+v", res)
	}

	expectStatus(t, do(t, app, "POST", "/v1/sessions/"+id+"/stations/abc/click", nil), 400)
	expectStatus(t, do(t, app, "POST", "/v1/sessions/"+id+"/stations/99/click", nil), 404)
}

func TestUndoRedo(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/undo", nil)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Outcome != string(domain.KindCreateStation) || !res.Summary.CanRedo {
		t.Errorf("unexpected undo result %+v", res)
	}
	if got := len(res.Summary.Lines[0].Stations); got != 1 {
		t.Errorf("expected 1 station after undo, got %d", got)
	}

	res = decode[usecases.EditResult](t, do(t, app, "POST", "/v1/sessions/"+id+"/redo", nil))
	if got := len(res.Summary.Lines[0].Stations); got != 2 {
		t.Errorf("expected 2 stations after redo, got %d", got)
	}

	res = decode[usecases.EditResult](t, do(t, app, "POST", "/v1/sessions/"+id+"/redo", nil))
	if res.Outcome != "ignored" || res.Changed {
		t.Errorf("redo on empty stack should be ignored, got %+v", res)
	}
}

func TestUpdateStation(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "PATCH", "/v1/sessions/"+id+"/stations/2", map[string]any{
		"name":     "Jannowitzbrücke",
		"position": ostk,
	})
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Summary.Lines[0].Stations[1].Name != "Jannowitzbrücke" {
		t.Errorf("expected rename, got %+v", res.Summary.Lines[0].Stations)
	}
	if len(res.Frame.Stations) != 1 || res.Frame.Stations[0].Position.Lat != ostk["lat"] {
		t.Errorf("expected moved station in frame, got %+v", res.Frame.Stations)
	}

	expectStatus(t, do(t, app, "PATCH", "/v1/sessions/"+id+"/stations/2", map[string]any{}), 400)
}

func TestUpdateLine_UnknownType(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "PATCH", "/v1/sessions/"+id+"/lines/1", map[string]string{"line_type": "tram"})
	expectStatus(t, resp, 400)

	resp = do(t, app, "PATCH", "/v1/sessions/"+id+"/lines/1", map[string]string{"line_type": "s", "name": "S1"})
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if l := res.Summary.Lines[0]; l.Name != "S1" || l.LineType != domain.LineTypeS {
		t.Errorf("unexpected line %+v", l)
	}
}

func TestRemoveLine(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "DELETE", "/v1/sessions/"+id+"/lines/1", nil)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if len(res.Summary.Lines) != 0 || len(res.Frame.RemovedStations) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestExportImport(t *testing.T) {
	app := setupApp(newDeps(nil))
	src := createSession(t, app)
	placeLine(t, app, src, alex, jann, ostk)

	resp := do(t, app, "GET", "/v1/sessions/"+src+"/document", nil)
	expectStatus(t, resp, 200)
	doc := decode[domain.Document](t, resp)
	if len(doc.Stations) != 3 || len(doc.Lines) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}

	dst := createSession(t, app)
	resp = do(t, app, "POST", "/v1/sessions/"+dst+"/document", doc)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Outcome != "imported" || len(res.Summary.Lines) != 1 {
		t.Errorf("unexpected import result %+v", res)
	}

	bad := map[string]any{"stations": []map[string]any{{"id": 1, "lines": []int{9}}}}
	expectStatus(t, do(t, app, "POST", "/v1/sessions/"+dst+"/document", bad), 400)
}

func TestDeprecatedExportRoute(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)

	resp := do(t, app, "GET", "/v1/sessions/"+id+"/export", nil)
	expectStatus(t, resp, 200)
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	want := fmt.Sprintf(`</v1/sessions/%s/document>; rel="successor-version"`, id)
	if got := resp.Header.Get("Link"); got != want {
		t.Errorf("expected Link %q, got %q", want, got)
	}

	resp = do(t, app, "GET", "/v1/sessions/"+id+"/document", nil)
	if resp.Header.Get("Deprecation") != "" {
		t.Error("current route must not be marked deprecated")
	}
}

func TestSummary_ETag(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "GET", "/v1/sessions/"+id+"/summary", nil)
	expectStatus(t, resp, 200)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	req := httptest.NewRequest("GET", "/v1/sessions/"+id+"/summary", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, resp, 304)
}

func TestGeoJSON(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "GET", "/v1/sessions/"+id+"/geojson", nil)
	expectStatus(t, resp, 200)
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := decode[map[string]any](t, resp)
	if body["type"] != "FeatureCollection" || len(body["features"].([]any)) != 3 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSuggestName(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/stations/1/name", nil)
	expectStatus(t, resp, 200)
	res := decode[usecases.EditResult](t, resp)
	if res.Outcome != "named" || res.Summary.Lines[0].Stations[0].Name != "Alexanderplatz" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestLineTypesAndIcons(t *testing.T) {
	app := setupApp(newDeps(nil))

	resp := do(t, app, "GET", "/v1/line-types", nil)
	expectStatus(t, resp, 200)
	types := decode[map[string][]domain.LineType](t, resp)
	if len(types["data"]) != 2 {
		t.Errorf("expected 2 line types, got %v", types)
	}

	resp = do(t, app, "GET", "/v1/icons/u", nil)
	expectStatus(t, resp, 200)
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("icons should be cached for long, got %q", cc)
	}

	expectStatus(t, do(t, app, "GET", "/v1/icons/tram", nil), 404)
	expectStatus(t, do(t, app, "GET", "/v1/icons/s", nil), 500)
}

func TestMaps_NotConfigured(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)

	expectStatus(t, do(t, app, "GET", "/v1/maps", nil), 503)
	expectStatus(t, do(t, app, "POST", "/v1/sessions/"+id+"/save", nil), 503)
}

func TestMaps_SaveAndOpen(t *testing.T) {
	repo := &mockMapRepo{maps: make(map[string]*domain.SavedMap)}
	app := setupApp(newDeps(repo))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/save", nil)
	expectStatus(t, resp, 200)
	if _, ok := repo.maps[id]; !ok {
		t.Fatal("expected map to be stored")
	}

	// Open in a fresh process.
	other := setupApp(newDeps(repo))
	resp = do(t, other, "POST", "/v1/maps/"+id+"/open", nil)
	expectStatus(t, resp, 201)
	info := decode[usecases.SessionInfo](t, resp)
	if info.ID != id || info.StationCount != 2 {
		t.Errorf("unexpected session %+v", info)
	}

	expectStatus(t, do(t, other, "POST", "/v1/maps/missing/open", nil), 404)
	expectStatus(t, do(t, other, "DELETE", "/v1/maps/"+id, nil), 204)
	expectStatus(t, do(t, other, "GET", "/v1/maps/"+id, nil), 404)
}

func TestMaps_ListPagination(t *testing.T) {
	repo := &mockMapRepo{
		maps:     make(map[string]*domain.SavedMap),
		listings: []domain.MapListing{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}},
		total:    45,
	}
	app := setupApp(newDeps(repo))

	resp := do(t, app, "GET", "/v1/maps?offset=20&limit=20", nil)
	expectStatus(t, resp, 200)

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header %q", rel, link)
		}
	}
	if want := `</v1/maps?offset=40&limit=20>; rel="next"`; !strings.Contains(link, want) {
		t.Errorf("expected %s in Link header %q", want, link)
	}

	page := decode[struct {
		Data       []domain.MapListing `json:"data"`
		Pagination handler.Pagination  `json:"pagination"`
	}](t, resp)
	if page.Pagination.Total != 45 || len(page.Data) != 2 || !page.Pagination.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestGraphQL_Session(t *testing.T) {
	app := setupApp(newDeps(nil))
	id := createSession(t, app)
	placeLine(t, app, id, alex, jann)

	query := fmt.Sprintf(`{ session(id: %q) { title station_count can_undo lines { name stations { name } } stations { station_id icon_kind } } lineTypes { id } }`, id)
	resp := do(t, app, "POST", "/graphql", map[string]string{"query": query})
	expectStatus(t, resp, 200)

	var body struct {
		Data struct {
			Session struct {
				Title        string `json:"title"`
				StationCount int    `json:"station_count"`
				CanUndo      bool   `json:"can_undo"`
				Lines        []struct {
					Name     string `json:"name"`
					Stations []struct {
						Name string `json:"name"`
					} `json:"stations"`
				} `json:"lines"`
				Stations []struct {
					StationID int    `json:"station_id"`
					IconKind  string `json:"icon_kind"`
				} `json:"stations"`
			} `json:"session"`
			LineTypes []struct {
				ID string `json:"id"`
			} `json:"lineTypes"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) > 0 {
		t.Fatalf("graphql errors: %v", body.Errors)
	}
	s := body.Data.Session
	if s.Title != "Berlin" || s.StationCount != 2 || !s.CanUndo {
		t.Errorf("unexpected session %+v", s)
	}
	if len(s.Lines) != 1 || len(s.Lines[0].Stations) != 2 || len(s.Stations) != 2 {
		t.Errorf("unexpected lines/stations %+v", s)
	}
	if s.Stations[0].IconKind != "u" {
		t.Errorf("expected u icon, got %q", s.Stations[0].IconKind)
	}
	if len(body.Data.LineTypes) != 2 {
		t.Errorf("expected 2 line types, got %d", len(body.Data.LineTypes))
	}
}
