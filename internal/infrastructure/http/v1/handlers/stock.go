package handlers

import (
	"github.com/gin-gonic/gin"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/domain/stock"
	"gestock/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes stock level and movement endpoints.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

func NewStockHandler(service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// RecordEntry handles POST /stock/entrees.
func (h *StockHandler) RecordEntry(c *gin.Context) {
	var req dto.StockEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id"))
		return
	}
	articleID, err := id.Parse(req.ArticleID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid article id"))
		return
	}

	location := entity.LocationRef{
		Type: entity.LocationType(req.LocationType),
		ID:   locationID,
	}
	movement, err := h.service.RecordEntry(c.Request.Context(), location, articleID, req.Quantite, req.Reference)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, movement.ID.String())
}

// Transfer handles POST /stock/transferts.
func (h *StockHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entrepotID, err := id.Parse(req.EntrepotID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid entrepot id"))
		return
	}
	pointVenteID, err := id.Parse(req.PointVenteID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid point of sale id"))
		return
	}
	articleID, err := id.Parse(req.ArticleID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid article id"))
		return
	}

	from := entity.LocationRef{Type: entity.LocationEntrepot, ID: entrepotID}
	to := entity.LocationRef{Type: entity.LocationPointVente, ID: pointVenteID}
	if err := h.service.Transfer(c.Request.Context(), from, to, articleID, req.Quantite); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true})
}

// LevelsByArticle handles GET /stock/articles/:id.
func (h *StockHandler) LevelsByArticle(c *gin.Context) {
	articleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	levels, err := h.service.GetLevelsByArticle(c.Request.Context(), articleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, levels)
}

// LevelsByLocation handles GET /stock/locations/:type/:id.
func (h *StockHandler) LevelsByLocation(c *gin.Context) {
	locationType := entity.LocationType(c.Param("type"))
	if locationType != entity.LocationEntrepot && locationType != entity.LocationPointVente {
		h.Error(c, apperror.NewValidation("invalid location type").WithDetail("type", c.Param("type")))
		return
	}
	locationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	location := entity.LocationRef{Type: locationType, ID: locationID}
	levels, err := h.service.GetLevelsByLocation(c.Request.Context(), location)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, levels)
}

// MovementsByReference handles GET /stock/mouvements.
func (h *StockHandler) MovementsByReference(c *gin.Context) {
	reference := c.Query("reference")
	movements, err := h.service.GetMovementsByReference(c.Request.Context(), reference)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movements)
}
