package content

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/postfilter/internal/db"
	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delFn         func(ctx context.Context, key string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchFn      func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	tagValuesFn   func(ctx context.Context, index, field string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Search(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) TagValues(ctx context.Context, index, field string) ([]string, error) {
	if m.tagValuesFn != nil {
		return m.tagValuesFn(ctx, index, field)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	schema := query.NewSchema([]string{"category", "post_tag"}, []string{"color"}, []string{"price"})
	return New(ms, "postfilter:items", schema), ms
}

func testItem(t *testing.T) domcontent.Item {
	t.Helper()
	it, err := domcontent.New(42, domcontent.Fields{
		PostType: "product",
		Author:   3,
		Title:    "Red boots",
		Link:     "https://shop.test/red-boots/",
		Date:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Terms:    map[string][]uint64{"category": {4, 9}},
		Meta:     map[string][]string{"color": {"red", "dark, red"}},
		Numeric:  map[string]float64{"price": 99.5},
	})
	if err != nil {
		t.Fatalf("testItem: %v", err)
	}
	return it
}
