// Package httpapi exposes the stock, mix and application services over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vsinha/agrostock/pkg/application/services"
)

// Services are the application services the handlers call
type Services struct {
	Catalog      *services.CatalogService
	Ledger       *services.LedgerService
	Stock        *services.ActiveStockService
	Mix          *services.MixService
	Applications *services.ApplicationService
}

// NewServices builds every service over the same dependencies
func NewServices(deps services.Deps) *Services {
	return &Services{
		Catalog:      services.NewCatalogService(deps),
		Ledger:       services.NewLedgerService(deps),
		Stock:        services.NewActiveStockService(deps),
		Mix:          services.NewMixService(deps),
		Applications: services.NewApplicationService(deps),
	}
}

type handler struct {
	svc *Services
}

// New returns an echo instance with every route registered
func New(svc *Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(requestLogger(log))

	h := &handler{svc: svc}
	e.GET("/health", h.health)

	e.GET("/products", h.listProducts)
	e.POST("/products", h.upsertProduct)
	e.GET("/products/:id", h.getProduct)
	e.DELETE("/products/:id", h.deleteProduct)
	e.GET("/actives", h.listActives)
	e.POST("/actives", h.upsertActive)

	e.POST("/lots", h.createLot)
	e.GET("/lots", h.listLots)
	e.GET("/lots/:id/balance", h.lotBalance)
	e.GET("/lots/:id/movements", h.listMovements)
	e.POST("/movements", h.appendMovement)

	e.POST("/allocations/preview", h.previewAllocation)
	e.POST("/withdrawals", h.withdraw)

	e.GET("/active-stock", h.activeStock)
	e.GET("/reports/stock-summary", h.stockSummary)

	e.POST("/mix/check", h.checkPair)
	e.POST("/mix/check-items", h.checkItems)
	e.GET("/rules", h.listRules)
	e.POST("/rules", h.saveRule)
	e.GET("/mixes", h.listMixes)
	e.POST("/mixes", h.createMix)
	e.GET("/mixes/:id", h.getMix)

	e.POST("/applications", h.createApplication)
	e.GET("/applications", h.listApplications)
	e.GET("/applications/:id", h.getApplication)
	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Dur("took", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
