package handler

import (
	"errors"
	"net/http"
	"time"

	"sofra_market/internal/domain/order/model"
	"sofra_market/internal/domain/order/service"
	userHandler "sofra_market/internal/domain/user/handler"
	userModel "sofra_market/internal/domain/user/model"
	"sofra_market/pkg/response"
	"sofra_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	DishID          string     `json:"dish_id" binding:"required"`
	Quantity        int        `json:"quantity" binding:"required,min=1"`
	DeliveryAddress string     `json:"delivery_address"`
	DeliveryNotes   string     `json:"delivery_notes"`
	ScheduledAt     *time.Time `json:"scheduled_delivery_at"`
}

// ConfirmInput 确认输入
type ConfirmInput struct {
	OrderID string `json:"order_id" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=client cook"`
}

// StatusInput 状态流转输入
type StatusInput struct {
	Status string `json:"status" binding:"required,oneof=preparing ready delivered cancelled"`
}

// Create 下单
// @Summary 创建订单并返回支付跳转地址
// @Tags Order
// @Accept json
// @Produce json
// @Param input body CreateOrderInput true "Order"
// @Success 200 {object} response.Response
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	clientID := userHandler.GetUserIDFromContext(c)
	result, err := h.service.CreateOrder(c.Request.Context(), clientID, service.CreateOrderInput{
		DishID:          input.DishID,
		Quantity:        input.Quantity,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryNotes:   input.DeliveryNotes,
		ScheduledAt:     input.ScheduledAt,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrPaymentFailed, err.Error())
		return
	}

	response.Success(c, gin.H{
		"url":        result.URL,
		"order_id":   result.Order.ID,
		"session_id": result.SessionID,
	})
}

// Confirm 双方确认
// @Summary 确认订单完成，双方都确认后释放资金并返回回执
// @Tags Order
// @Accept json
// @Produce json
// @Param input body ConfirmInput true "Confirmation"
// @Success 200 {object} response.Response{data=service.ConfirmResult}
// @Router /orders/confirm [post]
func (h *OrderHandler) Confirm(c *gin.Context) {
	var input ConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := userHandler.GetUserIDFromContext(c)
	result, err := h.service.Confirm(c.Request.Context(), userID, input.OrderID, input.Role)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			response.Error(c, http.StatusForbidden, response.ErrOrderUnauthorized, "unauthorized")
			return
		}
		if errors.Is(err, service.ErrNotConfirmable) {
			response.Error(c, http.StatusBadRequest, response.ErrOrderBadTransition, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrPaymentFailed, err.Error())
		return
	}
	response.Success(c, result)
}

// PaymentCallback 支付完成回跳
func (h *OrderHandler) PaymentCallback(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "session_id is required")
		return
	}

	order, err := h.service.MarkPaid(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
		return
	}
	response.Success(c, order)
}

// UpdateStatus 家厨推进订单状态
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var input StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	cookID := userHandler.GetUserIDFromContext(c)
	order, err := h.service.UpdateStatus(c.Request.Context(), cookID, c.Param("id"), model.OrderStatus(input.Status))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			response.Error(c, http.StatusForbidden, response.ErrOrderUnauthorized, "unauthorized")
			return
		}
		response.Error(c, http.StatusBadRequest, response.ErrOrderBadTransition, err.Error())
		return
	}
	response.Success(c, order)
}

// Cancel 客户取消订单
func (h *OrderHandler) Cancel(c *gin.Context) {
	clientID := userHandler.GetUserIDFromContext(c)
	order, err := h.service.CancelOrder(c.Request.Context(), clientID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			response.Error(c, http.StatusForbidden, response.ErrOrderUnauthorized, "unauthorized")
			return
		}
		response.Error(c, http.StatusBadRequest, response.ErrOrderBadTransition, err.Error())
		return
	}
	response.Success(c, order)
}

// Get 订单详情
func (h *OrderHandler) Get(c *gin.Context) {
	userID := userHandler.GetUserIDFromContext(c)
	order, err := h.service.GetOrder(userID, c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusForbidden, response.ErrOrderUnauthorized, "unauthorized")
		return
	}
	response.Success(c, order)
}

// Mine 我的订单列表，按角色区分客户单/家厨单
func (h *OrderHandler) Mine(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := userHandler.GetUserIDFromContext(c)
	role := userHandler.GetRoleFromContext(c)

	var (
		orders []model.Order
		total  int64
		err    error
	)
	if c.Query("as") == "cook" || (c.Query("as") == "" && role == userModel.RoleHomeCook) {
		orders, total, err = h.service.GetCookOrders(userID, p.Page, p.Limit)
	} else {
		orders, total, err = h.service.GetClientOrders(userID, p.Page, p.Limit)
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: orders, Total: total, Page: p.Page, Limit: p.Limit})
}
