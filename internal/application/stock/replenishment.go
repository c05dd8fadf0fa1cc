package stock

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// idealStockFactor stock ideal = mínimo * 1.5.
var idealStockFactor = decimal.NewFromFloat(1.5)

// ReplenishmentUseCase genera la lista de reposición de una tienda.
type ReplenishmentUseCase struct {
	repos Repos
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(repos Repos) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{repos: repos}
}

// GenerateReplenishmentList productos con stock bajo su mínimo, cantidad sugerida de pedido
// y prioridad por déficit (1 = más urgente).
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, pharmacyID, shopID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	if shopID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := checkShopScope(ctx, uc.repos, shopID, pharmacyID); err != nil {
		return nil, err
	}
	products, err := uc.repos.Products.ListBelowMinimum(ctx, shopID)
	if err != nil {
		return nil, err
	}
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(products))
	for _, p := range products {
		current := p.Stock.Decimal()
		minimum := p.MinimumStock.Decimal()
		ideal := minimum.Mul(idealStockFactor)
		suggested := ideal.Sub(current)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:          p.ID,
			SKU:                p.SKU,
			ProductName:        p.Name,
			CurrentStock:       current,
			MinimumStock:       minimum,
			IdealStock:         ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           p.Cost.Amount(),
			EstimatedOrderCost: suggested.Mul(p.Cost.Amount()),
		})
	}

	// mayor déficit absoluto primero; empate por SKU para un orden estable
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.MinimumStock.Sub(a.CurrentStock)
		defB := b.MinimumStock.Sub(b.CurrentStock)
		if !defA.Equal(defB) {
			return defA.GreaterThan(defB)
		}
		return a.SKU < b.SKU
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
