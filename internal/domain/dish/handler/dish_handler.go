package handler

import (
	"net/http"

	"sofra_market/internal/domain/dish/service"
	userHandler "sofra_market/internal/domain/user/handler"
	"sofra_market/pkg/response"
	"sofra_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DishHandler 菜品处理器
type DishHandler struct {
	service service.DishService
}

func NewDishHandler(s service.DishService) *DishHandler {
	return &DishHandler{service: s}
}

// DishInput 菜品输入
type DishInput struct {
	Name        string   `json:"name" binding:"required"`
	NameEn      string   `json:"name_en"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Category    string   `json:"category"`
	ImageURLs   []string `json:"image_urls"`
}

// AvailabilityInput 上架/下架输入
type AvailabilityInput struct {
	Available *bool `json:"available" binding:"required"`
}

// ModerateInput 审核输入
type ModerateInput struct {
	Approve *bool `json:"approve" binding:"required"`
}

// Browse 浏览菜品
// @Summary 浏览菜品（审核通过且在售）
// @Tags Dish
// @Produce json
// @Param category query string false "Category"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /dishes [get]
func (h *DishHandler) Browse(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	dishes, total, err := h.service.BrowseDishes(c.Query("category"), p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: dishes, Total: total, Page: p.Page, Limit: p.Limit})
}

// Get 菜品详情
func (h *DishHandler) Get(c *gin.Context) {
	dish, err := h.service.GetDish(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrDishNotFound, "Dish not found")
		return
	}
	response.Success(c, dish)
}

// Create 创建菜品（家厨）
func (h *DishHandler) Create(c *gin.Context) {
	var input DishInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	cookID := userHandler.GetUserIDFromContext(c)
	dish, err := h.service.CreateDish(cookID, service.CreateDishInput{
		Name:        input.Name,
		NameEn:      input.NameEn,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURLs:   input.ImageURLs,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, dish)
}

// Mine 家厨自己的菜品列表
func (h *DishHandler) Mine(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	cookID := userHandler.GetUserIDFromContext(c)
	dishes, total, err := h.service.GetCookDishes(cookID, p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: dishes, Total: total, Page: p.Page, Limit: p.Limit})
}

// Update 更新菜品（家厨）
func (h *DishHandler) Update(c *gin.Context) {
	var input DishInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	cookID := userHandler.GetUserIDFromContext(c)
	dish, err := h.service.UpdateDish(cookID, c.Param("id"), service.CreateDishInput{
		Name:        input.Name,
		NameEn:      input.NameEn,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURLs:   input.ImageURLs,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, dish)
}

// SetAvailability 上架/下架（家厨）
func (h *DishHandler) SetAvailability(c *gin.Context) {
	var input AvailabilityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	cookID := userHandler.GetUserIDFromContext(c)
	dish, err := h.service.SetAvailability(cookID, c.Param("id"), *input.Available)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, dish)
}

// Pending 管理员审核队列
func (h *DishHandler) Pending(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	dishes, total, err := h.service.GetPendingDishes(p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: dishes, Total: total, Page: p.Page, Limit: p.Limit})
}

// Moderate 管理员审核
func (h *DishHandler) Moderate(c *gin.Context) {
	var input ModerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	dish, err := h.service.Moderate(c.Param("id"), *input.Approve)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, dish)
}
