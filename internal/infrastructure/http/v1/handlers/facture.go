package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/domain/facture"
	"gestock/internal/infrastructure/http/v1/dto"
)

// FactureHandler exposes sale invoice endpoints.
type FactureHandler struct {
	*BaseHandler
	service *facture.Service
}

func NewFactureHandler(service *facture.Service) *FactureHandler {
	return &FactureHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles POST /factures.
func (h *FactureHandler) Create(c *gin.Context) {
	var req dto.CreateFactureRequest
	if !h.BindJSON(c, &req) {
		return
	}

	clientID, err := id.Parse(req.ClientID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid client id"))
		return
	}

	in := facture.CreateSaleInput{
		ClientID:       clientID,
		Numero:         req.Numero,
		DeliveryIntent: req.StatutLivraison,
		DeductStock:    req.DeductStock,
		MontantVerse:   req.MontantVerse,
		ModePaiement:   req.ModePaiement,
	}
	if req.PointVenteID != nil {
		pointVenteID, err := id.Parse(*req.PointVenteID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid point of sale id"))
			return
		}
		in.PointVenteID = &pointVenteID
	}
	for i, l := range req.Lignes {
		articleID, err := id.Parse(l.ArticleID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid article id").WithDetail("line", i))
			return
		}
		in.Lines = append(in.Lines, facture.CreateSaleLine{
			ArticleID:    articleID,
			Quantite:     l.Quantite,
			PrixUnitaire: l.PrixUnitaire,
		})
	}

	result, err := h.service.CreateInvoice(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetByID handles GET /factures/:id.
func (h *FactureHandler) GetByID(c *gin.Context) {
	factureID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	f, err := h.service.GetByID(c.Request.Context(), factureID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, f)
}

// List handles GET /factures.
func (h *FactureHandler) List(c *gin.Context) {
	filter := facture.ListFilter{
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
	if raw := c.Query("statutPaiement"); raw != "" {
		statut := facture.PaymentStatus(raw)
		switch statut {
		case facture.PaymentEnAttente, facture.PaymentPartielle, facture.PaymentPayee:
			filter.Statut = &statut
		default:
			h.Error(c, apperror.NewValidation("invalid statut").WithDetail("statutPaiement", raw))
			return
		}
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// RecordPayment handles POST /factures/:id/versements.
func (h *FactureHandler) RecordPayment(c *gin.Context) {
	factureID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RecordVersementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	f, err := h.service.RecordPayment(c.Request.Context(), factureID, req.Montant, req.ModePaiement)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, f)
}

// ListPayments handles GET /versements.
func (h *FactureHandler) ListPayments(c *gin.Context) {
	filter := facture.VersementFilter{
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
	if raw := c.Query("factureId"); raw != "" {
		factureID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid facture id"))
			return
		}
		filter.FactureID = &factureID
	}

	items, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}
