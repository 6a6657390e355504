package handler

import (
	"net/http"
	"time"

	"sofra_market/internal/domain/user/model"
	"sofra_market/internal/domain/user/service"
	"sofra_market/pkg/response"
	"sofra_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// SendOTPInput 发送验证码输入
type SendOTPInput struct {
	Mobile string `json:"mobile" binding:"required"`
}

// LoginInput 登录输入
type LoginInput struct {
	Mobile string `json:"mobile" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// UpdateProfileInput 更新资料输入
type UpdateProfileInput struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email" binding:"omitempty,email"`
}

// BecomeProviderInput 成为服务商输入
type BecomeProviderInput struct {
	ProviderType string `json:"provider_type" binding:"required,oneof=home_cook house_worker craftsman"`
}

// BanInput 封禁输入
type BanInput struct {
	Days int `json:"days"` // 0 表示永久
}

// SendOTP 发送验证码
func (h *UserHandler) SendOTP(c *gin.Context) {
	var input SendOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SendOTP(input.Mobile); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, true)
}

// LoginOrRegister 验证码登录，新手机号自动注册
func (h *UserHandler) LoginOrRegister(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, err := h.service.LoginOrRegister(input.Mobile, input.Code)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		return
	}
	response.Success(c, gin.H{"token": token})
}

// GetUsers 获取用户列表（管理员）
func (h *UserHandler) GetUsers(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.service.GetUsers(p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch users")
		return
	}

	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: p.Limit})
}

// GetUser 获取单个用户
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	user, err := h.service.GetUser(id)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
		return
	}
	response.Success(c, user)
}

// UpdateProfile 更新当前用户资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := GetUserIDFromContext(c)
	user, err := h.service.UpdateUser(userID, input.Nickname, input.AvatarURL, input.Email)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, user)
}

// BecomeProvider 当前用户转为服务商
func (h *UserHandler) BecomeProvider(c *gin.Context) {
	var input BecomeProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	role := model.RoleHomeCook
	switch input.ProviderType {
	case "house_worker":
		role = model.RoleHouseWorker
	case "craftsman":
		role = model.RoleCraftsman
	}

	userID := GetUserIDFromContext(c)
	user, err := h.service.BecomeProvider(userID, role)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, user)
}

// BanUser 封禁用户（管理员）
func (h *UserHandler) BanUser(c *gin.Context) {
	var input BanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	var until *time.Time
	if input.Days > 0 {
		t := time.Now().AddDate(0, 0, input.Days)
		until = &t
	}

	if err := h.service.BanUser(c.Param("id"), until); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, true)
}

// DeleteUser 注销用户
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Param("id")); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, true)
}

// GetUserIDFromContext 从上下文取当前用户ID（AuthMiddleware 写入）
func GetUserIDFromContext(c *gin.Context) string {
	val, _ := c.Get("userID")
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

// GetRoleFromContext 从上下文取当前用户角色（AuthMiddleware 写入）
func GetRoleFromContext(c *gin.Context) int {
	val, _ := c.Get("role")
	if role, ok := val.(int); ok {
		return role
	}
	return 0
}
