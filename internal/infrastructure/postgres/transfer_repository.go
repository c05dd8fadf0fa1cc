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

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados entre tiendas y sus líneas sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, pharmacy_id, reference, from_shop_id, to_shop_id, status, notes, created_by,
	validated_by, created_at, updated_at, validated_at, cancelled_at`

const transferItemColumns = `id, stock_transfer_id, product_id, quantity, created_at, updated_at`

func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.PharmacyID, t.Reference, t.FromShopID, t.ToShopID, string(t.Status), t.Notes,
		nullString(t.CreatedBy), nullString(t.ValidatedBy), t.CreatedAt, t.UpdatedAt, t.ValidatedAt, t.CancelledAt)
	if err != nil {
		// la referencia ya existe: otro generador entregó el mismo consecutivo, se reintenta con uno nuevo
		if isUniqueViolation(err) {
			return fmt.Errorf("referencia %s en uso: %w", t.Reference, domain.ErrConcurrentModification)
		}
		return wrap("insert transfer", err)
	}
	for i := range t.Items {
		t.Items[i].StockTransferID = t.ID
		if err := r.AddItem(ctx, &t.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) get(ctx context.Context, query, id string) (*entity.StockTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("get transfer", err)
	}
	items, err := r.items(ctx, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Items = items[t.ID]
	return t, nil
}

func (r *TransferRepo) TransferIDByItem(ctx context.Context, itemID string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `SELECT stock_transfer_id FROM stock_transfer_items WHERE id = $1`, itemID).Scan(&id)
	if err != nil {
		return "", wrap("get transfer item", err)
	}
	return id, nil
}

func (r *TransferRepo) UpdateStatus(ctx context.Context, t *entity.StockTransfer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_transfers
		SET status = $2, validated_by = $3, validated_at = $4, cancelled_at = $5, updated_at = $6
		WHERE id = $1`,
		t.ID, string(t.Status), nullString(t.ValidatedBy), t.ValidatedAt, t.CancelledAt, t.UpdatedAt)
	if err != nil {
		return wrap("update transfer status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *TransferRepo) AddItem(ctx context.Context, it *entity.StockTransferItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfer_items (`+transferItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.ID, it.StockTransferID, it.ProductID, it.Quantity.Decimal(), it.CreatedAt, it.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("producto %s ya está en el traslado: %w", it.ProductID, domain.ErrDuplicateItem)
		}
		return wrap("insert transfer item", err)
	}
	return nil
}

func (r *TransferRepo) UpdateItem(ctx context.Context, it *entity.StockTransferItem) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_transfer_items SET quantity = $2, updated_at = $3 WHERE id = $1`,
		it.ID, it.Quantity.Decimal(), it.UpdatedAt)
	if err != nil {
		return wrap("update transfer item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("línea %s: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *TransferRepo) DeleteItem(ctx context.Context, itemID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_transfer_items WHERE id = $1`, itemID)
	if err != nil {
		return wrap("delete transfer item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("línea %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (r *TransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	query, args, err := transferSearch(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transfer list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list transfers", err)
	}
	out := []*entity.StockTransfer{}
	ids := []string{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, wrap("scan transfer", err)
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("list transfers", err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range out {
		t.Items = items[t.ID]
	}
	return out, nil
}

func transferSearch(f repository.TransferFilter) sq.SelectBuilder {
	page := repository.NewPage(f.Page.Limit, f.Page.Offset)
	qb := psql.Select(transferColumns).
		From("stock_transfers").
		OrderBy("created_at DESC", "reference DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	if f.PharmacyID != "" {
		qb = qb.Where(sq.Eq{"pharmacy_id": f.PharmacyID})
	}
	if f.ShopID != "" {
		qb = qb.Where(sq.Or{sq.Eq{"from_shop_id": f.ShopID}, sq.Eq{"to_shop_id": f.ShopID}})
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
	return qb
}

// items carga las líneas de varios traslados en una sola consulta, en orden de creación.
func (r *TransferRepo) items(ctx context.Context, transferIDs []string) (map[string][]entity.StockTransferItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+transferItemColumns+` FROM stock_transfer_items
		WHERE stock_transfer_id = ANY($1) ORDER BY created_at, id`, transferIDs)
	if err != nil {
		return nil, wrap("list transfer items", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.StockTransferItem, len(transferIDs))
	for _, id := range transferIDs {
		out[id] = []entity.StockTransferItem{}
	}
	for rows.Next() {
		var (
			it  entity.StockTransferItem
			qty decimal.Decimal
		)
		if err := rows.Scan(&it.ID, &it.StockTransferID, &it.ProductID, &qty, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, wrap("scan transfer item", err)
		}
		it.Quantity = quantity(qty)
		out[it.StockTransferID] = append(out[it.StockTransferID], it)
	}
	return out, wrap("list transfer items", rows.Err())
}

func scanTransfer(row scanner) (*entity.StockTransfer, error) {
	var (
		t                    entity.StockTransfer
		status               string
		createdBy, validBy   *string
		validated, cancelled *time.Time
	)
	err := row.Scan(&t.ID, &t.PharmacyID, &t.Reference, &t.FromShopID, &t.ToShopID, &status, &t.Notes,
		&createdBy, &validBy, &t.CreatedAt, &t.UpdatedAt, &validated, &cancelled)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	t.CreatedBy = derefString(createdBy)
	t.ValidatedBy = derefString(validBy)
	t.ValidatedAt = validated
	t.CancelledAt = cancelled
	return &t, nil
}
