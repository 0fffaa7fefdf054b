package handler_test

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/handler"
)

// --- Mock store ---

type mockCategoryStore struct {
	categories map[uuid.UUID]database.Category
	menus      map[uuid.UUID]int64 // menus held per category
}

func newMockCategoryStore() *mockCategoryStore {
	return &mockCategoryStore{
		categories: make(map[uuid.UUID]database.Category),
		menus:      make(map[uuid.UUID]int64),
	}
}

func (m *mockCategoryStore) ListCategories(_ context.Context) ([]database.ListCategoriesRow, error) {
	result := make([]database.ListCategoriesRow, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, database.ListCategoriesRow{
			ID:          c.ID,
			Name:        c.Name,
			IsAvailable: c.IsAvailable,
			CreatedAt:   c.CreatedAt,
			MenuCount:   m.menus[c.ID],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockCategoryStore) CreateCategory(_ context.Context, name string) (database.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return database.Category{}, &pgconn.PgError{Code: "23505"}
		}
	}
	c := database.Category{ID: uuid.New(), Name: name, IsAvailable: true}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) UpdateCategory(_ context.Context, arg database.UpdateCategoryParams) (database.Category, error) {
	c, ok := m.categories[arg.ID]
	if !ok {
		return database.Category{}, pgx.ErrNoRows
	}
	c.Name = arg.Name
	c.IsAvailable = arg.IsAvailable
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) DeleteCategory(_ context.Context, id uuid.UUID) (int64, error) {
	if m.menus[id] > 0 {
		return 0, &pgconn.PgError{Code: "23503"}
	}
	if _, ok := m.categories[id]; !ok {
		return 0, nil
	}
	delete(m.categories, id)
	return 1, nil
}

func setupCategoryRouter(store *mockCategoryStore) *chi.Mux {
	h := handler.NewCategoryHandler(store)
	r := chi.NewRouter()
	r.Route("/categories", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r
}

// --- Tests ---

func TestCategories_CreateAndList(t *testing.T) {
	store := newMockCategoryStore()
	router := setupCategoryRouter(store)

	for _, name := range []string{"Mains", "Drinks"} {
		rr := doRequest(t, router, "POST", "/categories", map[string]string{"name": name})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create %s: got %d, want %d; body: %s", name, rr.Code, http.StatusCreated, rr.Body.String())
		}
	}

	rr := doRequest(t, router, "GET", "/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(resp))
	}
	if resp[0]["name"] != "Drinks" {
		t.Errorf("first: got %v, want Drinks", resp[0]["name"])
	}
	if resp[0]["menu_count"] != float64(0) {
		t.Errorf("menu_count: got %v, want 0", resp[0]["menu_count"])
	}
}

func TestCategories_ListMenuCount(t *testing.T) {
	store := newMockCategoryStore()
	mains := database.Category{ID: uuid.New(), Name: "Mains", IsAvailable: true}
	drinks := database.Category{ID: uuid.New(), Name: "Drinks", IsAvailable: true}
	store.categories[mains.ID] = mains
	store.categories[drinks.ID] = drinks
	store.menus[mains.ID] = 3
	router := setupCategoryRouter(store)

	rr := doRequest(t, router, "GET", "/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(resp))
	}
	if resp[0]["name"] != "Drinks" || resp[0]["menu_count"] != float64(0) {
		t.Errorf("drinks: got %v", resp[0])
	}
	if resp[1]["name"] != "Mains" || resp[1]["menu_count"] != float64(3) {
		t.Errorf("mains: got %v", resp[1])
	}
}

func TestCategories_CreateBlankName(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequest(t, router, "POST", "/categories", map[string]string{"name": "   "})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCategories_CreateDuplicate(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	doRequest(t, router, "POST", "/categories", map[string]string{"name": "Mains"})
	rr := doRequest(t, router, "POST", "/categories", map[string]string{"name": "Mains"})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCategories_UpdateHidesCategory(t *testing.T) {
	store := newMockCategoryStore()
	c := database.Category{ID: uuid.New(), Name: "Desserts", IsAvailable: true}
	store.categories[c.ID] = c
	router := setupCategoryRouter(store)

	rr := doRequest(t, router, "PUT", "/categories/"+c.ID.String(), map[string]interface{}{
		"name":         "Desserts",
		"is_available": false,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if store.categories[c.ID].IsAvailable {
		t.Error("expected category to be unavailable")
	}
}

func TestCategories_UpdateNotFound(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequest(t, router, "PUT", "/categories/"+uuid.New().String(), map[string]string{"name": "X"})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCategories_DeleteWithMenus(t *testing.T) {
	store := newMockCategoryStore()
	c := database.Category{ID: uuid.New(), Name: "Mains", IsAvailable: true}
	store.categories[c.ID] = c
	store.menus[c.ID] = 2
	router := setupCategoryRouter(store)

	rr := doRequest(t, router, "DELETE", "/categories/"+c.ID.String(), nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCategories_Delete(t *testing.T) {
	store := newMockCategoryStore()
	c := database.Category{ID: uuid.New(), Name: "Mains", IsAvailable: true}
	store.categories[c.ID] = c
	router := setupCategoryRouter(store)

	rr := doRequest(t, router, "DELETE", "/categories/"+c.ID.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}
