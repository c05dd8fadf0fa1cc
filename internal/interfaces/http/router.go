package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-pos-api/pkg/jwt"
)

// HealthCheck verifica una dependencia (base de datos, redis).
type HealthCheck func(ctx context.Context) error

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock     *StockHandler
	Transfers *TransferHandler
	Inventory *InventoryHandler
	JWTSecret string
	RateLimit int // peticiones por minuto por farmacia; 0 = sin límite
	Health    map[string]HealthCheck
}

// Roles que pueden modificar existencias fuera de la venta de mostrador.
var stockManagers = []string{jwt.RoleAdmin, jwt.RoleRegente, jwt.RoleInventarios}

// Roles que aprueban documentos que mueven stock (traslados, inventarios).
var approvers = []string{jwt.RoleAdmin, jwt.RoleRegente}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Health))

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), RateLimit(deps.RateLimit))

	// Stock por tienda
	shop := api.Group("/shops/:shop_id")
	sh := deps.Stock
	shop.Post("/stock/receive", RequireRole(stockManagers...), sh.Receive)
	shop.Post("/stock/sell", sh.Sell)
	shop.Post("/stock/adjust", RequireRole(stockManagers...), sh.Adjust)
	shop.Post("/stock/return", sh.Return)
	shop.Get("/products/:product_id", sh.GetProduct)
	shop.Get("/products/:product_id/check", sh.Check)
	shop.Get("/products/:product_id/movements", sh.ProductMovements)
	shop.Get("/movements", sh.Movements)
	shop.Get("/batches", sh.Batches)
	shop.Get("/batches/expiring", sh.Expiring)
	shop.Get("/batches/expired", sh.Expired)
	shop.Get("/batches/report", sh.ExpiryReport)
	shop.Get("/batches/:batch_id", sh.Batch)
	shop.Delete("/batches/:batch_id", RequireRole(stockManagers...), sh.WriteOff)
	shop.Get("/replenishment", deps.Inventory.GetReplenishmentList)

	// Traslados
	transfers := api.Group("/transfers")
	th := deps.Transfers
	transfers.Get("/", th.List)
	transfers.Post("/", RequireRole(stockManagers...), th.Create)
	transfers.Put("/items/:item_id", RequireRole(stockManagers...), th.UpdateItem)
	transfers.Delete("/items/:item_id", RequireRole(stockManagers...), th.RemoveItem)
	transfers.Get("/:id", th.Get)
	transfers.Post("/:id/items", RequireRole(stockManagers...), th.AddItem)
	transfers.Post("/:id/validate", RequireRole(approvers...), th.Validate)
	transfers.Post("/:id/cancel", RequireRole(stockManagers...), th.Cancel)

	// Inventarios físicos
	inventories := api.Group("/inventories")
	ih := deps.Inventory
	inventories.Get("/", ih.List)
	inventories.Post("/", RequireRole(stockManagers...), ih.Start)
	inventories.Put("/items/:item_id", RequireRole(stockManagers...), ih.RecordCount)
	inventories.Get("/:id", ih.Get)
	inventories.Post("/:id/validate", RequireRole(approvers...), ih.Validate)
}

// healthHandler 200 si todas las dependencias responden; 503 con el detalle si alguna falla.
func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		result := fiber.Map{}
		for name, check := range checks {
			if err := check(c.Context()); err != nil {
				status = fiber.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		return c.Status(status).JSON(fiber.Map{"status": status == fiber.StatusOK, "checks": result})
	}
}
