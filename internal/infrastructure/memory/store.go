// Package memory implementa los repositorios del motor de inventario en memoria.
// Se usa en modo desarrollo (STORE_DRIVER=memory) y en las pruebas de la capa de aplicación.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// state copia completa de los datos. Las transacciones trabajan sobre un clon y lo publican al confirmar.
type state struct {
	shops          map[string]entity.Shop
	products       map[string]entity.Product
	batches        map[string]entity.ProductBatch
	movements      []entity.StockMovement
	transfers      map[string]entity.StockTransfer // sin Items
	transferItems  map[string]entity.StockTransferItem
	inventories    map[string]entity.Inventory // sin Items
	inventoryItems map[string]entity.InventoryItem
	batchSeq       int64
}

func newState() *state {
	return &state{
		shops:          map[string]entity.Shop{},
		products:       map[string]entity.Product{},
		batches:        map[string]entity.ProductBatch{},
		transfers:      map[string]entity.StockTransfer{},
		transferItems:  map[string]entity.StockTransferItem{},
		inventories:    map[string]entity.Inventory{},
		inventoryItems: map[string]entity.InventoryItem{},
	}
}

func (st *state) clone() *state {
	c := &state{
		shops:          make(map[string]entity.Shop, len(st.shops)),
		products:       make(map[string]entity.Product, len(st.products)),
		batches:        make(map[string]entity.ProductBatch, len(st.batches)),
		movements:      make([]entity.StockMovement, len(st.movements)),
		transfers:      make(map[string]entity.StockTransfer, len(st.transfers)),
		transferItems:  make(map[string]entity.StockTransferItem, len(st.transferItems)),
		inventories:    make(map[string]entity.Inventory, len(st.inventories)),
		inventoryItems: make(map[string]entity.InventoryItem, len(st.inventoryItems)),
		batchSeq:       st.batchSeq,
	}
	for k, v := range st.shops {
		c.shops[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.batches {
		c.batches[k] = v
	}
	copy(c.movements, st.movements)
	for k, v := range st.transfers {
		c.transfers[k] = v
	}
	for k, v := range st.transferItems {
		c.transferItems[k] = v
	}
	for k, v := range st.inventories {
		c.inventories[k] = v
	}
	for k, v := range st.inventoryItems {
		c.inventoryItems[k] = v
	}
	return c
}

// Store almacén en memoria. Las transacciones se serializan con un mutex exclusivo,
// lo que equivale a bloquear cada fila tocada; las lecturas fuera de transacción usan RLock.
type Store struct {
	mu   sync.RWMutex
	data *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{data: newState()}
}

// Repos repositorios fuera de transacción (lecturas y altas sueltas).
func (s *Store) Repos() stock.Repos {
	return s.reposFor(base{store: s})
}

// Run ejecuta fn sobre un clon del estado; si fn no falla el clon reemplaza al estado actual.
func (s *Store) Run(ctx context.Context, fn func(repos stock.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(s.reposFor(base{store: s, tx: tx})); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) reposFor(b base) stock.Repos {
	return stock.Repos{
		Shops:       &ShopRepository{b},
		Products:    &ProductRepository{b},
		Batches:     &BatchRepository{b},
		Movements:   &MovementRepository{b},
		Transfers:   &TransferRepository{b},
		Inventories: &InventoryRepository{b},
	}
}

// base resuelve sobre qué estado operar: el de la transacción (ya bajo lock) o el publicado.
type base struct {
	store *Store
	tx    *state
}

func (b base) read(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	return fn(b.store.data)
}

func (b base) write(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.data)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
