// internal/adapters/db/catalog_store.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

const (
	catalogTable = "catalog_records"

	// pgUniqueViolation is the SQLSTATE raised by the sku unique constraint
	pgUniqueViolation = "23505"
)

var catalogColumns = []string{
	"id", "name", "sku", "description", "category", "price",
	"quantity", "minimum_stock", "location", "supplier", "image_url",
	"is_active", "created_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// catalogStore implements ports.CatalogStore on PostgreSQL
type catalogStore struct {
	db     *Database
	logger *slog.Logger
}

// NewCatalogStore creates a new Postgres backed catalog store
func NewCatalogStore(db *Database, logger *slog.Logger) ports.CatalogStore {
	return &catalogStore{
		db:     db,
		logger: logger.With(slog.String("repository", "catalog")),
	}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// applyFilter narrows a select to the records matched by the filter
func applyFilter(qb squirrel.SelectBuilder, filter domain.CatalogFilter) squirrel.SelectBuilder {
	if filter.IsActive != nil {
		qb = qb.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.Category != "" {
		qb = qb.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Keyword != "" {
		pattern := "%" + likeEscaper.Replace(filter.Keyword) + "%"
		qb = qb.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
			squirrel.ILike{"description": pattern},
		})
	}
	return qb
}

// Find retrieves catalog records with filtering and pagination
func (s *catalogStore) Find(ctx context.Context, filter domain.CatalogFilter, opts ports.FindOptions) ([]*domain.CatalogRecord, error) {
	qb := applyFilter(psql().Select(catalogColumns...).From(catalogTable), filter).
		OrderBy("updated_at DESC", "seq ASC")

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Skip > 0 {
		qb = qb.Offset(uint64(opts.Skip))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog records: %w", err)
	}

	records, err := ScanMany(rows, func(r pgx.Rows) (*domain.CatalogRecord, error) {
		return scanRecord(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog records: %w", err)
	}

	return records, nil
}

// Count returns the number of records matched by the filter
func (s *catalogStore) Count(ctx context.Context, filter domain.CatalogFilter) (int64, error) {
	query, args, err := applyFilter(psql().Select("COUNT(*)").From(catalogTable), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count catalog records: %w", err)
	}

	return count, nil
}

// FindByID retrieves a catalog record by id
func (s *catalogStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	return s.findOne(ctx, squirrel.Eq{"id": id})
}

// FindBySKU retrieves a catalog record by its sku
func (s *catalogStore) FindBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error) {
	return s.findOne(ctx, squirrel.Eq{"sku": sku})
}

func (s *catalogStore) findOne(ctx context.Context, where squirrel.Eq) (*domain.CatalogRecord, error) {
	query, args, err := psql().Select(catalogColumns...).From(catalogTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	record, err := ScanOne(s.db.QueryRow(ctx, query, args...), scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to find catalog record: %w", err)
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}

	return record, nil
}

// FindLowStock returns active records at or below their minimum stock
func (s *catalogStore) FindLowStock(ctx context.Context) ([]*domain.CatalogRecord, error) {
	query, args, err := psql().Select(catalogColumns...).
		From(catalogTable).
		Where(squirrel.Eq{"is_active": true}).
		Where("quantity <= minimum_stock").
		OrderBy("updated_at DESC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock records: %w", err)
	}

	records, err := ScanMany(rows, func(r pgx.Rows) (*domain.CatalogRecord, error) {
		return scanRecord(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan low stock records: %w", err)
	}

	return records, nil
}

// Insert stores a new catalog record
func (s *catalogStore) Insert(ctx context.Context, record *domain.CatalogRecord) error {
	query, args, err := psql().Insert(catalogTable).
		Columns(catalogColumns...).
		Values(
			record.ID, record.Name, record.SKU, record.Description, record.Category,
			record.Price, record.Quantity, record.MinimumStock, record.Location,
			record.Supplier, record.ImageURL, record.IsActive,
			record.CreatedAt, record.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert catalog record: %w", err)
	}

	s.logger.DebugContext(ctx, "catalog record inserted",
		slog.String("id", record.ID.String()),
		slog.String("sku", record.SKU))

	return nil
}

// UpdateOne overwrites every mutable column of an existing record
func (s *catalogStore) UpdateOne(ctx context.Context, record *domain.CatalogRecord) error {
	query, args, err := psql().Update(catalogTable).
		SetMap(map[string]interface{}{
			"name":          record.Name,
			"sku":           record.SKU,
			"description":   record.Description,
			"category":      record.Category,
			"price":         record.Price,
			"quantity":      record.Quantity,
			"minimum_stock": record.MinimumStock,
			"location":      record.Location,
			"supplier":      record.Supplier,
			"image_url":     record.ImageURL,
			"is_active":     record.IsActive,
			"updated_at":    record.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": record.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to update catalog record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	s.logger.DebugContext(ctx, "catalog record updated",
		slog.String("id", record.ID.String()))

	return nil
}

// DeleteOne performs a hard delete, freeing the sku
func (s *catalogStore) DeleteOne(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM catalog_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	s.logger.InfoContext(ctx, "catalog record deleted",
		slog.String("id", id.String()))

	return nil
}

// Ping verifies the underlying pool is reachable
func (s *catalogStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanRecord(row pgx.Row) (*domain.CatalogRecord, error) {
	r := &domain.CatalogRecord{}
	err := row.Scan(
		&r.ID, &r.Name, &r.SKU, &r.Description, &r.Category, &r.Price,
		&r.Quantity, &r.MinimumStock, &r.Location, &r.Supplier, &r.ImageURL,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
