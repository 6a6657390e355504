package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sofra_market/internal/domain/subscription/model"
	"sofra_market/internal/domain/subscription/repository"
	userRepository "sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/config"
	"sofra_market/internal/pkg/payments"
	"sofra_market/pkg/logger"

	"go.uber.org/zap"
)

// SubscriptionService 订阅服务接口
type SubscriptionService interface {
	// CheckStatus 解析服务商订阅状态
	// providerType 必须与账号角色一致（不能拿家厨账号查保洁订阅）；
	// 优先查支付方，有在线订阅时镜像回写本地记录，
	// 查不到支付客户或订阅时退回本地试用期兜底
	CheckStatus(ctx context.Context, userID, providerType string) (*StatusResult, error)

	// CreateCheckout 创建订阅支付会话，返回跳转地址
	CreateCheckout(ctx context.Context, userID string) (string, error)

	// StartTrial 服务商开通时建立试用期记录，已存在则跳过
	StartTrial(userID, providerType string) error
}

// StatusResult 订阅状态检查结果
type StatusResult struct {
	Subscribed      bool       `json:"subscribed"`
	Status          string     `json:"status"`
	TrialEndsAt     *time.Time `json:"trial_ends_at,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	DaysLeft        *int       `json:"days_left,omitempty"`
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	userRepo userRepository.UserRepository
	payments payments.Client
}

// NewSubscriptionService 创建订阅服务
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	userRepo userRepository.UserRepository,
	pay payments.Client,
) SubscriptionService {
	return &subscriptionService{repo: repo, userRepo: userRepo, payments: pay}
}

func (s *subscriptionService) CheckStatus(ctx context.Context, userID, providerType string) (*StatusResult, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsProvider() {
		return nil, errors.New("only providers have subscriptions")
	}
	if providerType != user.ProviderType() {
		return nil, fmt.Errorf("provider type %s does not match the account role", providerType)
	}

	// 1. 支付方为准
	if user.Email != "" {
		customerID, err := s.payments.FindCustomerByEmail(ctx, user.Email)
		if err != nil {
			return nil, fmt.Errorf("find payment customer: %w", err)
		}
		if customerID != "" {
			info, err := s.payments.LatestSubscription(ctx, customerID)
			if err != nil {
				return nil, fmt.Errorf("fetch subscription: %w", err)
			}
			if info != nil {
				return s.mirrorBack(user.ID, user.ProviderType(), customerID, info)
			}
		}
	}

	// 2. 本地试用期兜底
	return s.trialFallback(userID)
}

// mirrorBack 把支付方的订阅状态镜像回本地记录，并构造检查结果
func (s *subscriptionService) mirrorBack(userID, providerType, customerID string, info *payments.SubscriptionInfo) (*StatusResult, error) {
	status := mapStripeStatus(info.Status)

	sub, err := s.repo.GetByUserID(userID)
	if err != nil {
		// 没有本地记录就补一条（直接在支付方订阅的服务商）
		sub = &model.Subscription{UserID: userID, ProviderType: providerType}
		if err := s.repo.Create(sub); err != nil {
			return nil, err
		}
	}

	periodEnd := info.PeriodEnd
	sub.Status = status
	sub.EndsAt = &periodEnd
	sub.StripeCustomerID = customerID
	sub.StripeSubscriptionID = info.ID
	if err := s.repo.Update(sub); err != nil {
		return nil, err
	}

	subscribed := info.Status == "active" || info.Status == "trialing"
	result := &StatusResult{
		Subscribed:      subscribed,
		Status:          string(status),
		SubscriptionEnd: &periodEnd,
	}
	if subscribed {
		days := model.DaysLeft(time.Now(), periodEnd)
		result.DaysLeft = &days
	}
	return result, nil
}

// trialFallback 没有在线订阅时按本地试用期记录判定
func (s *subscriptionService) trialFallback(userID string) (*StatusResult, error) {
	sub, err := s.repo.GetByUserID(userID)
	if err != nil {
		return &StatusResult{Subscribed: false, Status: "no_subscription"}, nil
	}

	now := time.Now()
	if sub.TrialActive(now) {
		days := model.DaysLeft(now, *sub.TrialEndsAt)
		return &StatusResult{
			Subscribed:  true,
			Status:      string(model.SubscriptionStatusTrial),
			TrialEndsAt: sub.TrialEndsAt,
			DaysLeft:    &days,
		}, nil
	}

	// 试用期已过，同步本地状态
	if sub.Status == model.SubscriptionStatusTrial {
		sub.Status = model.SubscriptionStatusExpired
		if err := s.repo.Update(sub); err != nil {
			logger.Log.Warn("mark trial expired", zap.String("userID", userID), zap.Error(err))
		}
	}
	return &StatusResult{
		Subscribed:  false,
		Status:      string(model.SubscriptionStatusExpired),
		TrialEndsAt: sub.TrialEndsAt,
	}, nil
}

func (s *subscriptionService) CreateCheckout(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if !user.IsProvider() {
		return "", errors.New("only providers can subscribe")
	}
	if user.Email == "" {
		return "", errors.New("email is required before subscribing")
	}

	priceID := priceIDFor(user.ProviderType())
	if priceID == "" {
		return "", fmt.Errorf("no subscription price configured for %s", user.ProviderType())
	}

	customerID, err := s.payments.EnsureCustomer(ctx, user.Email, user.Nickname)
	if err != nil {
		return "", fmt.Errorf("ensure payment customer: %w", err)
	}

	return s.payments.CreateSubscriptionCheckout(ctx, payments.SubscriptionCheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		TrialDays:  config.GlobalConfig.Stripe.TrialDays,
	})
}

func (s *subscriptionService) StartTrial(userID, providerType string) error {
	if _, err := s.repo.GetByUserID(userID); err == nil {
		// 已有记录（比如角色切换），试用期不重置
		return nil
	}

	trialEnd := time.Now().AddDate(0, 0, int(config.GlobalConfig.Stripe.TrialDays))
	return s.repo.Create(&model.Subscription{
		UserID:       userID,
		ProviderType: providerType,
		Status:       model.SubscriptionStatusTrial,
		TrialEndsAt:  &trialEnd,
	})
}

// mapStripeStatus Stripe 原始状态到本地枚举的映射
func mapStripeStatus(status string) model.SubscriptionStatus {
	switch status {
	case "active":
		return model.SubscriptionStatusActive
	case "trialing":
		return model.SubscriptionStatusTrial
	case "canceled":
		return model.SubscriptionStatusCancelled
	default:
		return model.SubscriptionStatusExpired
	}
}

func priceIDFor(providerType string) string {
	switch providerType {
	case model.ProviderTypeHomeCook:
		return config.GlobalConfig.Stripe.HomeCookPriceID
	case model.ProviderTypeHouseWorker:
		return config.GlobalConfig.Stripe.HouseWorkerPriceID
	case model.ProviderTypeCraftsman:
		return config.GlobalConfig.Stripe.CraftsmanPriceID
	default:
		return ""
	}
}
