package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/hospital-itsm/internal/application/service"
)

// optionalActorID is actorID for operations that record an actor when one
// is given
func optionalActorID(c *gin.Context) (int64, error) {
	if c.GetHeader(HeaderUserID) == "" {
		return 0, nil
	}
	return actorID(c)
}

// CreateCatalogItem handles POST /api/catalog-items
func (h *Handlers) CreateCatalogItem(c *gin.Context) {
	var in service.CreateCatalogItemInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "create catalog item", err)
		return
	}
	item, err := h.services.Warehouse.CreateCatalogItem(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create catalog item", err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// ReceiveStock handles POST /api/catalog-items/:id/stock
func (h *Handlers) ReceiveStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "receive stock", err)
		return
	}
	actor, err := optionalActorID(c)
	if err != nil {
		h.fail(c, "receive stock", err)
		return
	}
	var in service.ReceiveStockInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "receive stock", err)
		return
	}
	rec, err := h.services.Warehouse.ReceiveStock(c.Request.Context(), id, in, actor)
	if err != nil {
		h.fail(c, "receive stock", err)
		return
	}
	respond(c, http.StatusCreated, rec)
}

// ListStock handles GET /api/catalog-items/:id/stock
func (h *Handlers) ListStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "list stock", err)
		return
	}
	records, err := h.services.Warehouse.ListStock(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "list stock", err)
		return
	}
	respond(c, http.StatusOK, records)
}

// ListMovements handles GET /api/catalog-items/:id/movements
func (h *Handlers) ListMovements(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "list movements", err)
		return
	}
	movements, err := h.services.Warehouse.ListMovements(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "list movements", err)
		return
	}
	respond(c, http.StatusOK, movements)
}

// CreateAsset handles POST /api/assets
func (h *Handlers) CreateAsset(c *gin.Context) {
	var in service.CreateAssetInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "create asset", err)
		return
	}
	asset, err := h.services.ServiceDesk.CreateAsset(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create asset", err)
		return
	}
	respond(c, http.StatusCreated, asset)
}

// GetAsset handles GET /api/assets/:id
func (h *Handlers) GetAsset(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "get asset", err)
		return
	}
	asset, err := h.services.ServiceDesk.GetAsset(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get asset", err)
		return
	}
	respond(c, http.StatusOK, asset)
}

// CompleteMaintenance handles POST /api/assets/:id/maintenance
func (h *Handlers) CompleteMaintenance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "complete maintenance", err)
		return
	}
	actor, err := optionalActorID(c)
	if err != nil {
		h.fail(c, "complete maintenance", err)
		return
	}
	var in service.MaintenanceInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "complete maintenance", err)
		return
	}
	record, err := h.services.ServiceDesk.CompleteMaintenance(c.Request.Context(), id, in, actor)
	if err != nil {
		h.fail(c, "complete maintenance", err)
		return
	}
	respond(c, http.StatusCreated, record)
}

// ReportIncident handles POST /api/assets/:id/incidents
func (h *Handlers) ReportIncident(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "report incident", err)
		return
	}
	actor, err := optionalActorID(c)
	if err != nil {
		h.fail(c, "report incident", err)
		return
	}
	var in service.IncidentInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "report incident", err)
		return
	}
	incident, err := h.services.ServiceDesk.ReportIncident(c.Request.Context(), id, in, actor)
	if err != nil {
		h.fail(c, "report incident", err)
		return
	}
	respond(c, http.StatusCreated, incident)
}

// ResolveIncident handles POST /api/incidents/:id/resolve
func (h *Handlers) ResolveIncident(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "resolve incident", err)
		return
	}
	actor, err := optionalActorID(c)
	if err != nil {
		h.fail(c, "resolve incident", err)
		return
	}
	var in service.ResolveIncidentInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "resolve incident", err)
		return
	}
	incident, err := h.services.ServiceDesk.ResolveIncident(c.Request.Context(), id, in, actor)
	if err != nil {
		h.fail(c, "resolve incident", err)
		return
	}
	respond(c, http.StatusOK, incident)
}
