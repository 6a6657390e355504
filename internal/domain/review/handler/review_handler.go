package handler

import (
	"errors"
	"net/http"

	"sofra_market/internal/domain/review/service"
	userHandler "sofra_market/internal/domain/user/handler"
	"sofra_market/pkg/response"
	"sofra_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReviewHandler 评价处理器
type ReviewHandler struct {
	service service.ReviewService
}

func NewReviewHandler(s service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: s}
}

// CreateReviewInput 评价输入
type CreateReviewInput struct {
	OrderID string `json:"order_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// Create 创建评价
func (h *ReviewHandler) Create(c *gin.Context) {
	var input CreateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	clientID := userHandler.GetUserIDFromContext(c)
	review, err := h.service.CreateReview(clientID, input.OrderID, input.Rating, input.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAllowed):
			response.Error(c, http.StatusForbidden, response.ErrReviewNotAllowed, err.Error())
		case errors.Is(err, service.ErrDuplicate):
			response.Error(c, http.StatusConflict, response.ErrReviewDuplicate, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}
	response.Success(c, review)
}

// ByProvider 服务商评价列表
func (h *ReviewHandler) ByProvider(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	reviews, total, err := h.service.GetProviderReviews(c.Param("id"), p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: reviews, Total: total, Page: p.Page, Limit: p.Limit})
}

// ByDish 菜品评价列表
func (h *ReviewHandler) ByDish(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	reviews, total, err := h.service.GetDishReviews(c.Param("id"), p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: reviews, Total: total, Page: p.Page, Limit: p.Limit})
}

// ProviderStats 服务商评分汇总
func (h *ReviewHandler) ProviderStats(c *gin.Context) {
	stats, err := h.service.GetProviderStats(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, stats)
}
