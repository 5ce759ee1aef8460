package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

func (h *handler) listProducts(c echo.Context) error {
	out, err := h.svc.Catalog.ListProducts(c.Request().Context(), c.QueryParam("type"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) upsertProduct(c echo.Context) error {
	var req dto.UpsertProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Catalog.UpsertProduct(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) getProduct(c echo.Context) error {
	out, err := h.svc.Catalog.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) deleteProduct(c echo.Context) error {
	if err := h.svc.Catalog.DeleteProduct(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) listActives(c echo.Context) error {
	out, err := h.svc.Catalog.ListActives(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) upsertActive(c echo.Context) error {
	var req dto.UpsertActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Catalog.UpsertActive(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) createLot(c echo.Context) error {
	var req dto.CreateLotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Ledger.CreateLot(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *handler) listLots(c echo.Context) error {
	q := dto.LotQuery{
		ProductID:  c.QueryParam("product_id"),
		LocationID: c.QueryParam("location_id"),
	}
	err := echo.QueryParamsBinder(c).
		Bool("by_received", &q.ByReceived).
		Bool("in_stock", &q.InStockOnly).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameter")
	}
	if raw := c.QueryParam("expiring_within_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return entities.NewValidationError("expiring_within_days", "must be a whole number of days")
		}
		q.ExpiringWithinDays = &days
	}
	out, err := h.svc.Ledger.ListLotsWithBalance(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) lotBalance(c echo.Context) error {
	var asOf *time.Time
	if raw := c.QueryParam("as_of"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return entities.NewValidationError("as_of", "expected YYYY-MM-DD")
		}
		asOf = &t
	}
	out, err := h.svc.Ledger.Balance(c.Request().Context(), c.Param("id"), asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) listMovements(c echo.Context) error {
	out, err := h.svc.Ledger.ListMovements(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) appendMovement(c echo.Context) error {
	var req dto.MovementRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Ledger.AppendMovement(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// previewAllocation never writes; a shortfall is reported in the body
func (h *handler) previewAllocation(c echo.Context) error {
	var req dto.AllocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Ledger.Preview(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) withdraw(c echo.Context) error {
	var req dto.WithdrawRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Ledger.Withdraw(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *handler) activeStock(c echo.Context) error {
	out, err := h.svc.Stock.StockForActive(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) stockSummary(c echo.Context) error {
	out, err := h.svc.Stock.StockSummary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) checkPair(c echo.Context) error {
	var req dto.MixCheckRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Mix.Check(c.Request().Context(), req.A, req.B)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) checkItems(c echo.Context) error {
	var req dto.MixCheckItemsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Mix.CheckItems(c.Request().Context(), req.ProductIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) listRules(c echo.Context) error {
	out, err := h.svc.Mix.ListRules(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) saveRule(c echo.Context) error {
	var req dto.RuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Mix.SaveRule(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) listMixes(c echo.Context) error {
	out, err := h.svc.Mix.ListMixes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) createMix(c echo.Context) error {
	var req dto.CreateMixRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Mix.CreateMix(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *handler) getMix(c echo.Context) error {
	out, err := h.svc.Mix.GetMix(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) createApplication(c echo.Context) error {
	var req dto.CreateApplicationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Applications.CreateApplication(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *handler) listApplications(c echo.Context) error {
	out, err := h.svc.Applications.ListApplications(c.Request().Context(), c.QueryParam("parcel"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) getApplication(c echo.Context) error {
	out, err := h.svc.Applications.GetApplication(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
