package handlers

import (
	"github.com/gin-gonic/gin"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/domain/livraison"
	"gestock/internal/domain/precommande"
	"gestock/internal/infrastructure/http/v1/dto"
)

// PrecommandeHandler exposes pre-order endpoints.
type PrecommandeHandler struct {
	*BaseHandler
	service *precommande.Service
}

func NewPrecommandeHandler(service *precommande.Service) *PrecommandeHandler {
	return &PrecommandeHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles POST /precommandes.
func (h *PrecommandeHandler) Create(c *gin.Context) {
	var req dto.CreatePrecommandeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	clientID, err := id.Parse(req.ClientID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid client id"))
		return
	}

	p := &precommande.Precommande{
		ClientID: clientID,
		Numero:   req.Numero,
	}
	for i, l := range req.Lignes {
		articleID, err := id.Parse(l.ArticleID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid article id").WithDetail("line", i))
			return
		}
		p.Lines = append(p.Lines, precommande.Ligne{
			ArticleID: articleID,
			Quantite:  l.Quantite,
		})
	}

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID.String())
}

// GetByID handles GET /precommandes/:id.
func (h *PrecommandeHandler) GetByID(c *gin.Context) {
	precommandeID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), precommandeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /precommandes.
func (h *PrecommandeHandler) List(c *gin.Context) {
	filter := precommande.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("clientId"); raw != "" {
		clientID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid client id"))
			return
		}
		filter.ClientID = &clientID
	}
	if raw := c.Query("statut"); raw != "" {
		statut := livraison.Status(raw)
		if !statut.Valid() {
			h.Error(c, apperror.NewValidation("invalid statut").WithDetail("statut", raw))
			return
		}
		filter.Statut = &statut
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// ReconcileDelivery handles PUT /precommandes/:id/livraison. Clients
// submit the new cumulative delivered quantity per line.
func (h *PrecommandeHandler) ReconcileDelivery(c *gin.Context) {
	precommandeID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReconcileDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updates := make([]precommande.DeliveryUpdate, 0, len(req.Lignes))
	for i, l := range req.Lignes {
		lineID, err := id.Parse(l.LigneID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid line id").WithDetail("line", i))
			return
		}
		updates = append(updates, precommande.DeliveryUpdate{
			LineID:         lineID,
			QuantiteLivree: l.QuantiteLivree,
		})
	}

	result, err := h.service.ReconcileDelivery(c.Request.Context(), precommandeID, updates)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
