package service

import (
	"errors"
	"time"

	"sofra_market/internal/domain/user/model"
	"sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/otp"
	"sofra_market/pkg/logger"
	"sofra_market/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 用户服务接口
type UserService interface {
	LoginOrRegister(mobile, code string) (string, error)
	SendOTP(mobile string) error
	GetUsers(page, limit int) ([]model.User, int64, error)
	GetUser(id string) (*model.User, error)
	UpdateUser(id string, nickname, avatarURL, email string) (*model.User, error)
	BecomeProvider(id string, role int) (*model.User, error)
	BanUser(id string, until *time.Time) error
	DeleteUser(id string) error
}

// TrialStarter 服务商开通后建立试用期记录（由订阅模块实现）
type TrialStarter interface {
	StartTrial(userID, providerType string) error
}

// userService 实现
type userService struct {
	repo   repository.UserRepository
	otp    otp.OTPService
	trials TrialStarter // 可为 nil（测试环境）
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, otp otp.OTPService, trials TrialStarter) UserService {
	return &userService{repo: repo, otp: otp, trials: trials}
}

// LoginOrRegister 登录或注册
func (s *userService) LoginOrRegister(mobile, code string) (string, error) {
	// 1. 验证验证码
	if !s.otp.Verify(mobile, code) {
		return "", errors.New("invalid verification code")
	}

	// 2. 查询用户是否存在
	user, err := s.repo.GetByMobile(mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 3. 不存在则注册，默认客户角色
			user = &model.User{
				Mobile:   mobile,
				Nickname: "User_" + mobile[len(mobile)-4:], // 默认昵称
				Role:     model.RoleClient,
			}
			if err := s.repo.Create(user); err != nil {
				return "", err
			}
		} else {
			return "", err
		}
	}

	// 4. 检查用户状态
	if user.Status == model.StatusBanned {
		if user.BannedUntil != nil && time.Now().After(*user.BannedUntil) {
			user.Status = model.StatusNormal
			user.BannedUntil = nil
			s.repo.Update(user)
		} else {
			return "", errors.New("account is banned")
		}
	}
	if user.Status == model.StatusDeleted {
		return "", errors.New("account has been deleted")
	}

	// 5. 生成 Token
	token, tokenExpireAt, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", err
	}

	// 6. 保存token到用户表
	user.Token = token
	user.TokenExpireAt = tokenExpireAt
	if err := s.repo.Update(user); err != nil {
		return "", err
	}

	return token, nil
}

func (s *userService) SendOTP(mobile string) error {
	_, err := s.otp.Send(mobile)
	return err
}

// GetUsers 获取用户列表（分页）
func (s *userService) GetUsers(page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.GetList(offset, limit)
}

// GetUser 获取单个用户
func (s *userService) GetUser(id string) (*model.User, error) {
	return s.repo.GetByID(id)
}

// UpdateUser 更新用户资料
// 邮箱是支付客户的关联键，改邮箱后支付侧会按新邮箱重新建档
func (s *userService) UpdateUser(id string, nickname, avatarURL, email string) (*model.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	user.Nickname = nickname
	user.AvatarURL = avatarURL
	if email != "" {
		user.Email = email
	}

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// BecomeProvider 客户转为服务商角色
func (s *userService) BecomeProvider(id string, role int) (*model.User, error) {
	if role != model.RoleHomeCook && role != model.RoleHouseWorker && role != model.RoleCraftsman {
		return nil, errors.New("invalid provider role")
	}

	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user.Role == model.RoleAdmin {
		return nil, errors.New("admin cannot become provider")
	}
	if user.Email == "" {
		// 订阅计费按邮箱建档，成为服务商前必须补全
		return nil, errors.New("email is required before becoming a provider")
	}

	user.Role = role
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}

	// 开通试用期，失败不阻塞角色切换（状态检查时会兜底）
	if s.trials != nil {
		if err := s.trials.StartTrial(user.ID, user.ProviderType()); err != nil {
			logger.Log.Warn("start trial failed", zap.String("userID", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// BanUser 封禁用户（管理员操作），until 为空表示永久封禁
func (s *userService) BanUser(id string, until *time.Time) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	user.Status = model.StatusBanned
	user.BannedUntil = until
	return s.repo.Update(user)
}

// DeleteUser 删除用户（软删除，标记为已注销）
func (s *userService) DeleteUser(id string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	// 标记为已注销状态，而不是真正删除
	user.Status = model.StatusDeleted
	return s.repo.Update(user)
}
