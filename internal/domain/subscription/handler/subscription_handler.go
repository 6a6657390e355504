package handler

import (
	"net/http"

	"sofra_market/internal/domain/subscription/service"
	userHandler "sofra_market/internal/domain/user/handler"
	"sofra_market/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler 订阅处理器
type SubscriptionHandler struct {
	service service.SubscriptionService
}

func NewSubscriptionHandler(s service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: s}
}

// CheckInput 订阅状态检查输入
type CheckInput struct {
	ProviderType string `json:"provider_type" binding:"required,oneof=home_cook house_worker craftsman"`
}

// Check 订阅状态检查
// @Summary 检查当前服务商的订阅状态（在线订阅优先，试用期兜底）
// @Tags Subscription
// @Accept json
// @Produce json
// @Param input body CheckInput true "Provider type"
// @Success 200 {object} response.Response{data=service.StatusResult}
// @Router /subscriptions/check [post]
func (h *SubscriptionHandler) Check(c *gin.Context) {
	var input CheckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := userHandler.GetUserIDFromContext(c)
	result, err := h.service.CheckStatus(c.Request.Context(), userID, input.ProviderType)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrSubscriptionNotFound, err.Error())
		return
	}
	response.Success(c, result)
}

// Checkout 创建订阅支付会话
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	userID := userHandler.GetUserIDFromContext(c)
	url, err := h.service.CreateCheckout(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrPaymentFailed, err.Error())
		return
	}
	response.Success(c, gin.H{"url": url})
}
