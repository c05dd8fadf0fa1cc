package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// DateLayout formato de fechas de vencimiento en la API.
const DateLayout = "2006-01-02"

// ── Requests de stock ────────────────────────────────────────────────────────

// ReceiveRequest body para POST /api/shops/:shop_id/stock/receive.
type ReceiveRequest struct {
	ProductID           string           `json:"product_id"`
	BatchNumber         string           `json:"batch_number"`
	Quantity            decimal.Decimal  `json:"quantity"`
	ExpirationDate      string           `json:"expiration_date,omitempty"` // YYYY-MM-DD; vacío = no vence
	UnitCost            *decimal.Decimal `json:"unit_cost,omitempty"`
	Currency            string           `json:"currency,omitempty"`
	PurchaseOrderID     string           `json:"purchase_order_id,omitempty"`
	PurchaseOrderLineID string           `json:"purchase_order_line_id,omitempty"`
	Reference           string           `json:"reference,omitempty"`
}

// SellRequest body para POST /api/shops/:shop_id/stock/sell.
type SellRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference,omitempty"`
}

// AdjustRequest body para POST /api/shops/:shop_id/stock/adjust. Delta con signo.
type AdjustRequest struct {
	ProductID string          `json:"product_id"`
	Delta     decimal.Decimal `json:"delta"`
	Type      string          `json:"type,omitempty"` // por defecto "adjustment"
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// ReturnRequest body para POST /api/shops/:shop_id/stock/return.
type ReturnRequest struct {
	ProductID   string          `json:"product_id"`
	BatchNumber string          `json:"batch_number,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference,omitempty"`
}

// WriteOffRequest body para DELETE /api/shops/:shop_id/batches/:id.
type WriteOffRequest struct {
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ── Requests de traslados e inventarios ──────────────────────────────────────

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	FromShopID string `json:"from_shop_id"`
	ToShopID   string `json:"to_shop_id"`
	Notes      string `json:"notes,omitempty"`
}

// TransferItemRequest body para POST /api/transfers/:id/items.
type TransferItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// QuantityRequest body con una sola cantidad (editar línea, registrar conteo).
type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// StartInventoryRequest body para POST /api/inventories.
type StartInventoryRequest struct {
	ShopID string `json:"shop_id"`
	Notes  string `json:"notes,omitempty"`
}

// ── Responses ────────────────────────────────────────────────────────────────

// ProductStockResponse stock y costo de un producto.
type ProductStockResponse struct {
	ID           string          `json:"id"`
	ShopID       string          `json:"shop_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	UnitMeasure  string          `json:"unit_measure"`
	Stock        decimal.Decimal `json:"stock"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	Cost         decimal.Decimal `json:"cost"`
	Currency     string          `json:"currency"`
}

// BatchResponse lote con su clasificación de vencimiento.
type BatchResponse struct {
	ID               string          `json:"id"`
	ShopID           string          `json:"shop_id"`
	ProductID        string          `json:"product_id"`
	BatchNumber      string          `json:"batch_number"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ExpirationDate   string          `json:"expiration_date,omitempty"`
	ExpirationStatus string          `json:"expiration_status,omitempty"`
	PurchaseOrderID  string          `json:"purchase_order_id,omitempty"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MovementResponse entrada del kardex.
type MovementResponse struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shop_id"`
	ProductID string          `json:"product_id"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes,omitempty"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConsumptionResponse cantidad tomada de un lote.
type ConsumptionResponse struct {
	BatchID     string          `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// StockMutationResponse resultado de receive/sell/adjust/return/write-off.
type StockMutationResponse struct {
	Product      ProductStockResponse  `json:"product"`
	Movement     *MovementResponse     `json:"movement,omitempty"`
	Batch        *BatchResponse        `json:"batch,omitempty"`
	Consumptions []ConsumptionResponse `json:"consumptions,omitempty"`
}

// StockCheckResponse comparación stock / lotes / kardex.
type StockCheckResponse struct {
	ProductID   string          `json:"product_id"`
	Stock       decimal.Decimal `json:"stock"`
	BatchTotal  decimal.Decimal `json:"batch_total"`
	LedgerTotal decimal.Decimal `json:"ledger_total"`
	Consistent  bool            `json:"consistent"`
}

// TransferItemResponse línea de traslado.
type TransferItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferResponse traslado con líneas.
type TransferResponse struct {
	ID          string                 `json:"id"`
	Reference   string                 `json:"reference"`
	FromShopID  string                 `json:"from_shop_id"`
	ToShopID    string                 `json:"to_shop_id"`
	Status      string                 `json:"status"`
	Notes       string                 `json:"notes,omitempty"`
	CreatedBy   string                 `json:"created_by"`
	ValidatedBy string                 `json:"validated_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	ValidatedAt *time.Time             `json:"validated_at,omitempty"`
	CancelledAt *time.Time             `json:"cancelled_at,omitempty"`
	Items       []TransferItemResponse `json:"items"`
}

// InventoryItemResponse línea de conteo.
type InventoryItemResponse struct {
	ID              string           `json:"id"`
	ProductID       string           `json:"product_id"`
	SystemQuantity  decimal.Decimal  `json:"system_quantity"`
	CountedQuantity *decimal.Decimal `json:"counted_quantity"`
	Difference      *decimal.Decimal `json:"difference"`
}

// InventoryResponse inventario físico con líneas.
type InventoryResponse struct {
	ID          string                  `json:"id"`
	ShopID      string                  `json:"shop_id"`
	Reference   string                  `json:"reference"`
	Status      string                  `json:"status"`
	Notes       string                  `json:"notes,omitempty"`
	CreatedBy   string                  `json:"created_by"`
	ValidatedBy string                  `json:"validated_by,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	ValidatedAt *time.Time              `json:"validated_at,omitempty"`
	Items       []InventoryItemResponse `json:"items"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un producto bajo su stock mínimo.
type ReplenishmentSuggestionDTO struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	ProductName        string          `json:"product_name"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	MinimumStock       decimal.Decimal `json:"minimum_stock"`
	IdealStock         decimal.Decimal `json:"ideal_stock"`          // MinimumStock * 1.5
	SuggestedOrderQty  decimal.Decimal `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// ── Mappers ──────────────────────────────────────────────────────────────────

func ToProductStockResponse(p *entity.Product) ProductStockResponse {
	return ProductStockResponse{
		ID:           p.ID,
		ShopID:       p.ShopID,
		SKU:          p.SKU,
		Name:         p.Name,
		UnitMeasure:  p.UnitMeasure,
		Stock:        p.Stock.Decimal(),
		MinimumStock: p.MinimumStock.Decimal(),
		Cost:         p.Cost.Amount(),
		Currency:     p.Cost.Currency(),
	}
}

// ToBatchResponse status es la clasificación de vencimiento ya calculada (puede ir vacía).
func ToBatchResponse(b *entity.ProductBatch, status string) BatchResponse {
	r := BatchResponse{
		ID:               b.ID,
		ShopID:           b.ShopID,
		ProductID:        b.ProductID,
		BatchNumber:      b.BatchNumber,
		Quantity:         b.Quantity.Decimal(),
		UnitCost:         b.UnitCost.Amount(),
		ExpirationStatus: status,
		PurchaseOrderID:  b.PurchaseOrderID,
		IsActive:         b.IsActive,
		CreatedAt:        b.CreatedAt,
	}
	if b.ExpirationDate != nil {
		r.ExpirationDate = b.ExpirationDate.Format(DateLayout)
	}
	return r
}

func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		ShopID:    m.ShopID,
		ProductID: m.ProductID,
		Type:      string(m.Type),
		Quantity:  m.Quantity,
		Reference: m.Reference,
		Notes:     m.Notes,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

func ToMovementResponses(ms []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

func ToTransferResponse(t *entity.StockTransfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, TransferItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity.Decimal()})
	}
	return TransferResponse{
		ID:          t.ID,
		Reference:   t.Reference,
		FromShopID:  t.FromShopID,
		ToShopID:    t.ToShopID,
		Status:      string(t.Status),
		Notes:       t.Notes,
		CreatedBy:   t.CreatedBy,
		ValidatedBy: t.ValidatedBy,
		CreatedAt:   t.CreatedAt,
		ValidatedAt: t.ValidatedAt,
		CancelledAt: t.CancelledAt,
		Items:       items,
	}
}

func ToInventoryItemResponse(it *entity.InventoryItem) InventoryItemResponse {
	r := InventoryItemResponse{
		ID:             it.ID,
		ProductID:      it.ProductID,
		SystemQuantity: it.SystemQuantity.Decimal(),
		Difference:     it.Difference,
	}
	if it.CountedQuantity != nil {
		c := it.CountedQuantity.Decimal()
		r.CountedQuantity = &c
	}
	return r
}

func ToInventoryResponse(inv *entity.Inventory) InventoryResponse {
	items := make([]InventoryItemResponse, 0, len(inv.Items))
	for i := range inv.Items {
		items = append(items, ToInventoryItemResponse(&inv.Items[i]))
	}
	return InventoryResponse{
		ID:          inv.ID,
		ShopID:      inv.ShopID,
		Reference:   inv.Reference,
		Status:      string(inv.Status),
		Notes:       inv.Notes,
		CreatedBy:   inv.CreatedBy,
		ValidatedBy: inv.ValidatedBy,
		StartedAt:   inv.CreatedAt,
		ValidatedAt: inv.ValidatedAt,
		Items:       items,
	}
}
