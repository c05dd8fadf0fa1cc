package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/farmacia-pos-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/farmacia-pos-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Entorno: router completo sobre el almacén en memoria con el catálogo demo
// ──────────────────────────────────────────────────────────────────────────────

const (
	aceID     = "00000000-0000-0000-0000-0000000000b1"
	ibuID     = "00000000-0000-0000-0000-0000000000b2"
	otherShop = "00000000-0000-0000-0000-0000000000c9"
)

var apiNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type apiEnv struct {
	app   *fiber.App
	admin string
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, memory.SeedDemo(ctx, store.Repos(), apiNow, "COP"))

	repos := store.Repos()
	clock := fixedClock{t: apiNow}
	log := zerolog.Nop()
	refs := memory.NewReferenceSequence()
	batches := stock.NewBatchLedger(repos, clock, stock.WithExpiringDays(30))
	movements := stock.NewMovementLedger(repos.Movements, clock)
	svc := stock.NewStockService(store, repos, batches, movements, clock, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Stock:     apphttp.NewStockHandler(svc, batches, movements, "COP", 2, log),
		Transfers: apphttp.NewTransferHandler(stock.NewTransferUseCase(store, repos, svc, refs, clock, log), 2, log),
		Inventory: apphttp.NewInventoryHandler(
			stock.NewInventoryUseCase(store, repos, svc, refs, clock, log),
			stock.NewReplenishmentUseCase(repos), svc, 2, log),
		JWTSecret: testJWTSecret,
		Health:    map[string]apphttp.HealthCheck{"store": func(context.Context) error { return nil }},
	})
	return &apiEnv{app: app, admin: tokenFor(t, pkgjwt.RoleAdmin, "")}
}

func (e *apiEnv) call(t *testing.T, method, path, auth string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func shopPath(shopID, suffix string) string {
	return "/api/shops/" + shopID + suffix
}

func (e *apiEnv) receive(t *testing.T, productID, batch string, q int64, exp string) dto.StockMutationResponse {
	t.Helper()
	resp := e.call(t, http.MethodPost, shopPath(memory.DemoShopCentro, "/stock/receive"), e.admin, dto.ReceiveRequest{
		ProductID:      productID,
		BatchNumber:    batch,
		Quantity:       decimal.NewFromInt(q),
		ExpirationDate: exp,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out dto.StockMutationResponse
	decode(t, resp, &out)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_RecepcionYVentaFIFO(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-TARDE", 10, "2026-12-31")
	e.receive(t, aceID, "L-PRONTO", 5, "2025-09-30")

	resp := e.call(t, http.MethodPost, shopPath(memory.DemoShopCentro, "/stock/sell"), e.admin, dto.SellRequest{
		ProductID: aceID,
		Quantity:  decimal.NewFromInt(7),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.StockMutationResponse
	decode(t, resp, &out)
	assert.True(t, out.Product.Stock.Equal(decimal.NewFromInt(8)))
	require.Len(t, out.Consumptions, 2)
	assert.Equal(t, "L-PRONTO", out.Consumptions[0].BatchNumber)
	assert.True(t, out.Consumptions[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "L-TARDE", out.Consumptions[1].BatchNumber)
	assert.True(t, out.Consumptions[1].Quantity.Equal(decimal.NewFromInt(2)))
	require.NotNil(t, out.Movement)
	assert.Equal(t, "sale", out.Movement.Type)
	assert.True(t, out.Movement.Quantity.Equal(decimal.NewFromInt(-7)))
}

func TestStock_VentaSinExistencia_Retorna409(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 3, "")

	resp := e.call(t, http.MethodPost, shopPath(memory.DemoShopCentro, "/stock/sell"), e.admin, dto.SellRequest{
		ProductID: aceID,
		Quantity:  decimal.NewFromInt(4),
	})
	var body dto.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
}

func TestStock_CantidadNoPositiva_Retorna400(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodPost, shopPath(memory.DemoShopCentro, "/stock/sell"), e.admin, dto.SellRequest{
		ProductID: aceID,
		Quantity:  decimal.Zero,
	})
	var body dto.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", body.Code)
}

func TestStock_ShopIDNoUUID_Retorna400(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodGet, shopPath("centro", "/products/"+aceID), e.admin, nil)
	var body dto.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body.Code)
}

func TestStock_TokenDeOtraTienda_Retorna403(t *testing.T) {
	e := newAPI(t)
	auth := tokenFor(t, pkgjwt.RoleAuxiliar, memory.DemoShopNorte)
	resp := e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/products/"+aceID), auth, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStock_TiendaDeOtraFarmacia_Retorna404o403(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodGet, shopPath(otherShop, "/batches"), e.admin, nil)
	defer resp.Body.Close()
	assert.Contains(t, []int{http.StatusNotFound, http.StatusForbidden}, resp.StatusCode)
}

func TestStock_AuxiliarNoPuedeRecibir(t *testing.T) {
	e := newAPI(t)
	auth := tokenFor(t, pkgjwt.RoleAuxiliar, memory.DemoShopCentro)
	resp := e.call(t, http.MethodPost, shopPath(memory.DemoShopCentro, "/stock/receive"), auth, dto.ReceiveRequest{
		ProductID: aceID, BatchNumber: "L-1", Quantity: decimal.NewFromInt(1),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStock_ChequeoConsistente(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 12, "2026-01-31")

	resp := e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/products/"+aceID+"/check"), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.StockCheckResponse
	decode(t, resp, &out)
	assert.True(t, out.Consistent)
	assert.True(t, out.Stock.Equal(decimal.NewFromInt(12)))
	assert.True(t, out.LedgerTotal.Equal(decimal.NewFromInt(12)))
}

func TestStock_BajaDeLote(t *testing.T) {
	e := newAPI(t)
	rec := e.receive(t, aceID, "L-1", 6, "2026-01-31")
	require.NotNil(t, rec.Batch)

	resp := e.call(t, http.MethodDelete, shopPath(memory.DemoShopCentro, "/batches/"+rec.Batch.ID), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.StockMutationResponse
	decode(t, resp, &out)
	assert.True(t, out.Product.Stock.IsZero())
	require.NotNil(t, out.Movement)
	assert.True(t, out.Movement.Quantity.Equal(decimal.NewFromInt(-6)))
}

// ── Vencimientos ─────────────────────────────────────────────────────────────

func TestVencimientos_ReporteYListados(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-VENCIDO", 2, "2025-05-20")
	e.receive(t, aceID, "L-PRONTO", 3, "2025-06-15")
	e.receive(t, ibuID, "L-OK", 4, "2026-06-15")

	resp := e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/batches/report"), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report stock.ExpiryReport
	decode(t, resp, &report)
	assert.Equal(t, 1, report.Expired.Batches)
	assert.Equal(t, 1, report.ExpiringSoon.Batches)
	assert.Equal(t, 1, report.OK.Batches)
	assert.True(t, report.ExpiringSoon.Quantity.Equal(decimal.NewFromInt(3)))

	var listed struct {
		Total   int                 `json:"total"`
		Batches []dto.BatchResponse `json:"batches"`
	}
	resp = e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/batches/expiring?days=30"), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listed)
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "L-PRONTO", listed.Batches[0].BatchNumber)

	resp = e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/batches/expired"), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listed)
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "L-VENCIDO", listed.Batches[0].BatchNumber)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTraslado_FlujoCompleto(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 10, "2026-03-31")

	resp := e.call(t, http.MethodPost, "/api/transfers", e.admin, dto.CreateTransferRequest{
		FromShopID: memory.DemoShopCentro,
		ToShopID:   memory.DemoShopNorte,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tr dto.TransferResponse
	decode(t, resp, &tr)
	assert.Equal(t, "draft", tr.Status)
	assert.NotEmpty(t, tr.Reference)

	resp = e.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/items", e.admin, dto.TransferItemRequest{
		ProductID: aceID, Quantity: decimal.NewFromInt(4),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/validate", e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tr)
	assert.Equal(t, "validated", tr.Status)
	assert.NotNil(t, tr.ValidatedAt)

	resp = e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/products/"+aceID), e.admin, nil)
	var p dto.ProductStockResponse
	decode(t, resp, &p)
	assert.True(t, p.Stock.Equal(decimal.NewFromInt(6)))

	// un traslado validado ya no se cancela
	resp = e.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/cancel", e.admin, nil)
	var body dto.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", body.Code)
}

func TestTraslado_AuxiliarNoValida(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodPost, "/api/transfers", e.admin, dto.CreateTransferRequest{
		FromShopID: memory.DemoShopCentro,
		ToShopID:   memory.DemoShopNorte,
	})
	var tr dto.TransferResponse
	decode(t, resp, &tr)

	auth := tokenFor(t, pkgjwt.RoleInventarios, "")
	resp = e.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/validate", auth, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTraslado_TokenDeDestinoNoOperaElOrigen(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 10, "2026-03-31")
	norte := tokenFor(t, pkgjwt.RoleRegente, memory.DemoShopNorte)

	resp := e.call(t, http.MethodPost, "/api/transfers", norte, dto.CreateTransferRequest{
		FromShopID: memory.DemoShopCentro,
		ToShopID:   memory.DemoShopNorte,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.call(t, http.MethodPost, "/api/transfers", e.admin, dto.CreateTransferRequest{
		FromShopID: memory.DemoShopCentro,
		ToShopID:   memory.DemoShopNorte,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tr dto.TransferResponse
	decode(t, resp, &tr)

	resp = e.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/items", e.admin, dto.TransferItemRequest{
		ProductID: aceID, Quantity: decimal.NewFromInt(4),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item dto.TransferItemResponse
	decode(t, resp, &item)

	// la sede destino consulta el traslado pero no lo modifica
	resp = e.call(t, http.MethodGet, "/api/transfers/"+tr.ID, norte, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	denied := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPost, "/api/transfers/" + tr.ID + "/items", dto.TransferItemRequest{ProductID: aceID, Quantity: decimal.NewFromInt(1)}},
		{http.MethodPut, "/api/transfers/items/" + item.ID, dto.QuantityRequest{Quantity: decimal.NewFromInt(10)}},
		{http.MethodDelete, "/api/transfers/items/" + item.ID, nil},
		{http.MethodPost, "/api/transfers/" + tr.ID + "/validate", nil},
		{http.MethodPost, "/api/transfers/" + tr.ID + "/cancel", nil},
	}
	for _, d := range denied {
		resp = e.call(t, d.method, d.path, norte, d.body)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, d.method+" "+d.path)
	}

	resp = e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/products/"+aceID), e.admin, nil)
	var p dto.ProductStockResponse
	decode(t, resp, &p)
	assert.True(t, p.Stock.Equal(decimal.NewFromInt(10)))

	// una sede ajena al traslado no lo ve
	resp = e.call(t, http.MethodGet, "/api/transfers/"+tr.ID, tokenFor(t, pkgjwt.RoleRegente, otherShop), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTraslado_ListadoLimitadoALaSedeDelToken(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodPost, "/api/transfers", e.admin, dto.CreateTransferRequest{
		FromShopID: memory.DemoShopCentro,
		ToShopID:   memory.DemoShopNorte,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	norte := tokenFor(t, pkgjwt.RoleRegente, memory.DemoShopNorte)
	resp = e.call(t, http.MethodGet, "/api/transfers?shop_id="+memory.DemoShopCentro, norte, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.call(t, http.MethodGet, "/api/transfers", tokenFor(t, pkgjwt.RoleRegente, otherShop), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Total int `json:"total"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 0, out.Total)

	resp = e.call(t, http.MethodGet, "/api/transfers", norte, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Total)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario físico
// ──────────────────────────────────────────────────────────────────────────────

func TestInventario_ConteoYValidacion(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 10, "2026-03-31")

	resp := e.call(t, http.MethodPost, "/api/inventories", e.admin, dto.StartInventoryRequest{ShopID: memory.DemoShopCentro})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inv dto.InventoryResponse
	decode(t, resp, &inv)
	assert.Equal(t, "draft", inv.Status)

	var itemID string
	for _, it := range inv.Items {
		if it.ProductID == aceID {
			itemID = it.ID
			assert.True(t, it.SystemQuantity.Equal(decimal.NewFromInt(10)))
		}
	}
	require.NotEmpty(t, itemID)

	// un segundo inventario abierto en la misma tienda no se admite
	resp = e.call(t, http.MethodPost, "/api/inventories", e.admin, dto.StartInventoryRequest{ShopID: memory.DemoShopCentro})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.call(t, http.MethodPut, "/api/inventories/items/"+itemID, e.admin, dto.QuantityRequest{Quantity: decimal.NewFromInt(8)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item dto.InventoryItemResponse
	decode(t, resp, &item)
	require.NotNil(t, item.Difference)
	assert.True(t, item.Difference.Equal(decimal.NewFromInt(-2)))

	// sin conteo en todas las líneas no se valida
	resp = e.call(t, http.MethodPost, "/api/inventories/"+inv.ID+"/validate", e.admin, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// el resto de productos se cuenta sin diferencia
	for _, it := range inv.Items {
		if it.ID == itemID {
			continue
		}
		resp = e.call(t, http.MethodPut, "/api/inventories/items/"+it.ID, e.admin, dto.QuantityRequest{Quantity: it.SystemQuantity})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = e.call(t, http.MethodPost, "/api/inventories/"+inv.ID+"/validate", e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &inv)
	assert.Equal(t, "validated", inv.Status)

	resp = e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/products/"+aceID), e.admin, nil)
	var p dto.ProductStockResponse
	decode(t, resp, &p)
	assert.True(t, p.Stock.Equal(decimal.NewFromInt(8)))
}

func TestInventario_TokenDeOtraSedeNoAccede(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodPost, "/api/inventories", e.admin, dto.StartInventoryRequest{ShopID: memory.DemoShopCentro})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inv dto.InventoryResponse
	decode(t, resp, &inv)
	require.NotEmpty(t, inv.Items)

	norte := tokenFor(t, pkgjwt.RoleRegente, memory.DemoShopNorte)
	denied := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPost, "/api/inventories", dto.StartInventoryRequest{ShopID: memory.DemoShopCentro}},
		{http.MethodGet, "/api/inventories/" + inv.ID, nil},
		{http.MethodGet, "/api/inventories?shop_id=" + memory.DemoShopCentro, nil},
		{http.MethodPut, "/api/inventories/items/" + inv.Items[0].ID, dto.QuantityRequest{Quantity: decimal.Zero}},
		{http.MethodPost, "/api/inventories/" + inv.ID + "/validate", nil},
	}
	for _, d := range denied {
		resp = e.call(t, d.method, d.path, norte, d.body)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, d.method+" "+d.path)
	}

	// sin shop_id el listado toma la sede del token
	resp = e.call(t, http.MethodGet, "/api/inventories", norte, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Total int `json:"total"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 0, out.Total)

	centro := tokenFor(t, pkgjwt.RoleRegente, memory.DemoShopCentro)
	resp = e.call(t, http.MethodGet, "/api/inventories", centro, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Total)
}

func TestReposicion_ListaProductosBajoMinimo(t *testing.T) {
	e := newAPI(t)
	e.receive(t, aceID, "L-1", 50, "")

	resp := e.call(t, http.MethodGet, shopPath(memory.DemoShopCentro, "/replenishment"), e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Total          int                              `json:"total"`
		Replenishments []dto.ReplenishmentSuggestionDTO `json:"replenishments"`
	}
	decode(t, resp, &out)
	// ACE-500 queda sobre su mínimo; IBU-400 y SUE-ORA siguen en cero
	assert.Equal(t, 2, out.Total)
	for _, r := range out.Replenishments {
		assert.NotEqual(t, aceID, r.ProductID)
	}
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealth_Publico(t *testing.T) {
	e := newAPI(t)
	resp := e.call(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
