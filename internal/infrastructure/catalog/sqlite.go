package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dermaguide/backend/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is the sqlite-backed product catalog.
type Store struct {
	db *sql.DB
}

// New opens the catalog database and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListProducts returns candidate products ordered by ID, optionally
// filtered by a category substring. Intent tags are loaded in one batch
// so callers get complete products without extra round trips.
func (s *Store) ListProducts(ctx context.Context, categoryLike string, limit int) ([]domain.Product, error) {
	query := "SELECT product_id, name, brand, category, price FROM products"
	args := []any{}
	if categoryLike != "" {
		query += " WHERE category LIKE ?"
		args = append(args, "%"+strings.ToLower(categoryLike)+"%")
	}
	query += " ORDER BY product_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	var ids []int
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	intentTags, err := s.tagsFor(ctx, "product_intent_tags", ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Tags = intentTags[products[i].ID]
	}
	return products, nil
}

// TagsForProducts returns the normalized ingredient tags for the given
// product IDs in a single batch query.
func (s *Store) TagsForProducts(ctx context.Context, ids []int) (map[int][]string, error) {
	return s.tagsFor(ctx, "product_ingredient_tags", ids)
}

func (s *Store) tagsFor(ctx context.Context, table string, ids []int) (map[int][]string, error) {
	if len(ids) == 0 {
		return map[int][]string{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT product_id, tag FROM %s WHERE product_id IN (%s) ORDER BY product_id, tag",
		table, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	tags := make(map[int][]string, len(ids))
	for rows.Next() {
		var id int
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return tags, nil
}
