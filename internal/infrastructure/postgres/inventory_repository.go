package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo inventarios físicos (conteos) sobre PostgreSQL.
// Un índice único parcial impide dos inventarios en borrador para la misma tienda.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventoryColumns = `id, shop_id, reference, status, notes, created_by, validated_by,
	created_at, updated_at, validated_at`

const inventoryItemColumns = `id, inventory_id, product_id, system_quantity, counted_quantity, difference, updated_at`

func (r *InventoryRepo) Create(ctx context.Context, inv *entity.Inventory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventories (`+inventoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.ShopID, inv.Reference, string(inv.Status), inv.Notes,
		nullString(inv.CreatedBy), nullString(inv.ValidatedBy), inv.CreatedAt, inv.UpdatedAt, inv.ValidatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inventario abierto en tienda %s: %w", inv.ShopID, domain.ErrInvalidState)
		}
		return wrap("insert inventory", err)
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		it.InventoryID = inv.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO inventory_items (`+inventoryItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, it.InventoryID, it.ProductID, it.SystemQuantity.Decimal(),
			quantityPtr(it.CountedQuantity), it.Difference, it.UpdatedAt)
		if err != nil {
			return wrap("insert inventory item", err)
		}
	}
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.get(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE id = $1`, id)
}

func (r *InventoryRepo) GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.get(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE id = $1 FOR UPDATE`, id)
}

func (r *InventoryRepo) get(ctx context.Context, query, id string) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("get inventory", err)
	}
	items, err := r.items(ctx, []string{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]
	return inv, nil
}

func (r *InventoryRepo) InventoryIDByItem(ctx context.Context, itemID string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `SELECT inventory_id FROM inventory_items WHERE id = $1`, itemID).Scan(&id)
	if err != nil {
		return "", wrap("get inventory item", err)
	}
	return id, nil
}

func (r *InventoryRepo) UpdateItem(ctx context.Context, it *entity.InventoryItem) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory_items SET counted_quantity = $2, difference = $3, updated_at = $4 WHERE id = $1`,
		it.ID, quantityPtr(it.CountedQuantity), it.Difference, it.UpdatedAt)
	if err != nil {
		return wrap("update inventory item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("línea %s: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *InventoryRepo) UpdateStatus(ctx context.Context, inv *entity.Inventory) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventories SET status = $2, validated_by = $3, validated_at = $4, updated_at = $5
		WHERE id = $1`,
		inv.ID, string(inv.Status), nullString(inv.ValidatedBy), inv.ValidatedAt, inv.UpdatedAt)
	if err != nil {
		return wrap("update inventory status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventario %s: %w", inv.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *InventoryRepo) List(ctx context.Context, f repository.InventoryFilter) ([]*entity.Inventory, error) {
	page := repository.NewPage(f.Page.Limit, f.Page.Offset)
	qb := psql.Select(inventoryColumns).
		From("inventories").
		OrderBy("created_at DESC", "reference DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))
	if f.ShopID != "" {
		qb = qb.Where(sq.Eq{"shop_id": f.ShopID})
	}
	if f.Status != "" {
		qb = qb.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.FromDate != nil {
		qb = qb.Where(sq.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		qb = qb.Where(sq.LtOrEq{"created_at": *f.ToDate})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build inventory list: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list inventories", err)
	}
	out := []*entity.Inventory{}
	ids := []string{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			rows.Close()
			return nil, wrap("scan inventory", err)
		}
		out = append(out, inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("list inventories", err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, inv := range out {
		inv.Items = items[inv.ID]
	}
	return out, nil
}

// items líneas ordenadas por producto, el mismo orden en que se aplican los ajustes.
func (r *InventoryRepo) items(ctx context.Context, inventoryIDs []string) (map[string][]entity.InventoryItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+inventoryItemColumns+` FROM inventory_items
		WHERE inventory_id = ANY($1) ORDER BY product_id`, inventoryIDs)
	if err != nil {
		return nil, wrap("list inventory items", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.InventoryItem, len(inventoryIDs))
	for _, id := range inventoryIDs {
		out[id] = []entity.InventoryItem{}
	}
	for rows.Next() {
		var (
			it      entity.InventoryItem
			system  decimal.Decimal
			counted *decimal.Decimal
		)
		if err := rows.Scan(&it.ID, &it.InventoryID, &it.ProductID, &system, &counted, &it.Difference, &it.UpdatedAt); err != nil {
			return nil, wrap("scan inventory item", err)
		}
		it.SystemQuantity = quantity(system)
		it.CountedQuantity = nullableQuantity(counted)
		out[it.InventoryID] = append(out[it.InventoryID], it)
	}
	return out, wrap("list inventory items", rows.Err())
}

func scanInventory(row scanner) (*entity.Inventory, error) {
	var (
		inv                entity.Inventory
		status             string
		createdBy, validBy *string
		validated          *time.Time
	)
	err := row.Scan(&inv.ID, &inv.ShopID, &inv.Reference, &status, &inv.Notes,
		&createdBy, &validBy, &inv.CreatedAt, &inv.UpdatedAt, &validated)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InventoryStatus(status)
	inv.CreatedBy = derefString(createdBy)
	inv.ValidatedBy = derefString(validBy)
	inv.ValidatedAt = validated
	return &inv, nil
}
