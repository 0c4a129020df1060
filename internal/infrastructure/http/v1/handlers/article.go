package handlers

import (
	"github.com/gin-gonic/gin"

	"gestock/internal/domain/article"
	"gestock/internal/infrastructure/http/v1/dto"
)

// ArticleHandler exposes catalog endpoints.
type ArticleHandler struct {
	*BaseHandler
	service *article.Service
}

func NewArticleHandler(service *article.Service) *ArticleHandler {
	return &ArticleHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles POST /articles.
func (h *ArticleHandler) Create(c *gin.Context) {
	var req dto.CreateArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	a := &article.Article{
		Nom:       req.Nom,
		Reference: req.Reference,
		PrixVente: req.PrixVente,
	}
	if err := h.service.Create(c.Request.Context(), a); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, a.ID.String())
}

// Update handles PUT /articles/:id.
func (h *ArticleHandler) Update(c *gin.Context) {
	articleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), articleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	a.Nom = req.Nom
	a.Reference = req.Reference
	a.PrixVente = req.PrixVente
	a.Actif = req.Actif

	if err := h.service.Update(c.Request.Context(), a); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, a)
}

// GetByID handles GET /articles/:id.
func (h *ArticleHandler) GetByID(c *gin.Context) {
	articleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), articleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, a)
}

// List handles GET /articles.
func (h *ArticleHandler) List(c *gin.Context) {
	filter := article.ListFilter{
		Search:    c.Query("search"),
		OnlyActif: c.Query("actif") == "true",
		Limit:     h.ParseIntQuery(c, "limit", 50),
		Offset:    h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}
