package service

import (
	"context"
	"testing"
	"time"

	"sofra_market/internal/domain/subscription/model"
	userModel "sofra_market/internal/domain/user/model"
	"sofra_market/internal/pkg/config"
	"sofra_market/internal/pkg/payments"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// fakeSubscriptionRepo 内存订阅仓库
type fakeSubscriptionRepo struct {
	subs map[string]model.Subscription // key: userID
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]model.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(sub *model.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	r.subs[sub.UserID] = *sub
	return nil
}

func (r *fakeSubscriptionRepo) GetByUserID(userID string) (*model.Subscription, error) {
	s, ok := r.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := s
	return &copied, nil
}

func (r *fakeSubscriptionRepo) Update(sub *model.Subscription) error {
	r.subs[sub.UserID] = *sub
	return nil
}

// MockUserRepo 用户仓库 mock
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *userModel.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepo) GetByID(id string) (*userModel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepo) GetByMobile(mobile string) (*userModel.User, error) {
	args := m.Called(mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*userModel.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepo) GetList(offset, limit int) ([]userModel.User, int64, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]userModel.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepo) Update(user *userModel.User) error {
	return m.Called(user).Error(0)
}

// MockPayments 支付客户端 mock
type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	args := m.Called(ctx, email, name)
	return args.String(0), args.Error(1)
}

func (m *MockPayments) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockPayments) CreateOrderCheckout(ctx context.Context, p payments.OrderCheckoutParams) (*payments.CheckoutResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutResult), args.Error(1)
}

func (m *MockPayments) CapturePayment(ctx context.Context, holdRef string) error {
	return m.Called(ctx, holdRef).Error(0)
}

func (m *MockPayments) CancelPayment(ctx context.Context, holdRef string) error {
	return m.Called(ctx, holdRef).Error(0)
}

func (m *MockPayments) GetCheckoutStatus(ctx context.Context, sessionID string) (*payments.CheckoutStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutStatus), args.Error(1)
}

func (m *MockPayments) LatestSubscription(ctx context.Context, customerID string) (*payments.SubscriptionInfo, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.SubscriptionInfo), args.Error(1)
}

func (m *MockPayments) CreateSubscriptionCheckout(ctx context.Context, p payments.SubscriptionCheckoutParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func providerUser(id string) *userModel.User {
	u := &userModel.User{
		Email:    "cook@example.com",
		Nickname: "Um Ahmed",
		Role:     userModel.RoleHomeCook,
	}
	u.ID = id
	return u
}

func TestDaysLeft(t *testing.T) {
	now := time.Now()

	t.Run("Exact days", func(t *testing.T) {
		assert.Equal(t, 5, model.DaysLeft(now, now.Add(5*24*time.Hour)))
	})

	t.Run("Partial day rounds up", func(t *testing.T) {
		assert.Equal(t, 5, model.DaysLeft(now, now.Add(4*24*time.Hour+time.Minute)))
		assert.Equal(t, 1, model.DaysLeft(now, now.Add(time.Second)))
	})

	t.Run("Past end is zero", func(t *testing.T) {
		assert.Equal(t, 0, model.DaysLeft(now, now.Add(-time.Hour)))
	})
}

func TestCheckStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Active trial without payment customer", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		trialEnd := time.Now().Add(5 * 24 * time.Hour)
		_ = repo.Create(&model.Subscription{
			UserID:       "cook-1",
			ProviderType: model.ProviderTypeHomeCook,
			Status:       model.SubscriptionStatusTrial,
			TrialEndsAt:  &trialEnd,
		})

		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("", nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.True(t, result.Subscribed)
		assert.Equal(t, "trial", result.Status)
		assert.NotNil(t, result.DaysLeft)
		assert.Equal(t, 5, *result.DaysLeft)
	})

	t.Run("Expired trial is not subscribed", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		trialEnd := time.Now().Add(-24 * time.Hour)
		_ = repo.Create(&model.Subscription{
			UserID:       "cook-1",
			ProviderType: model.ProviderTypeHomeCook,
			Status:       model.SubscriptionStatusTrial,
			TrialEndsAt:  &trialEnd,
		})

		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("", nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.False(t, result.Subscribed)
		assert.Equal(t, "expired", result.Status)

		stored, _ := repo.GetByUserID("cook-1")
		assert.Equal(t, model.SubscriptionStatusExpired, stored.Status)
	})

	t.Run("No record at all", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("", nil)

		svc := NewSubscriptionService(newFakeSubscriptionRepo(), userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.False(t, result.Subscribed)
		assert.Equal(t, "no_subscription", result.Status)
	})

	t.Run("Live subscription mirrors back", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		trialEnd := time.Now().Add(-24 * time.Hour)
		_ = repo.Create(&model.Subscription{
			UserID:       "cook-1",
			ProviderType: model.ProviderTypeHomeCook,
			Status:       model.SubscriptionStatusTrial,
			TrialEndsAt:  &trialEnd,
		})

		periodEnd := time.Now().Add(20 * 24 * time.Hour)
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("cus_42", nil)
		pay.On("LatestSubscription", ctx, "cus_42").Return(&payments.SubscriptionInfo{
			ID:        "sub_42",
			Status:    "active",
			PeriodEnd: periodEnd,
		}, nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.True(t, result.Subscribed)
		assert.Equal(t, "active", result.Status)
		assert.Equal(t, 20, *result.DaysLeft)

		stored, _ := repo.GetByUserID("cook-1")
		assert.Equal(t, model.SubscriptionStatusActive, stored.Status)
		assert.Equal(t, "cus_42", stored.StripeCustomerID)
		assert.Equal(t, "sub_42", stored.StripeSubscriptionID)
	})

	t.Run("Stripe trialing counts as subscribed", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("cus_42", nil)
		pay.On("LatestSubscription", ctx, "cus_42").Return(&payments.SubscriptionInfo{
			ID:        "sub_42",
			Status:    "trialing",
			PeriodEnd: time.Now().Add(7 * 24 * time.Hour),
		}, nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.True(t, result.Subscribed)
		assert.Equal(t, "trial", result.Status)
	})

	t.Run("Cancelled subscription is not subscribed", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("cus_42", nil)
		pay.On("LatestSubscription", ctx, "cus_42").Return(&payments.SubscriptionInfo{
			ID:        "sub_42",
			Status:    "canceled",
			PeriodEnd: time.Now().Add(-24 * time.Hour),
		}, nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.False(t, result.Subscribed)
		assert.Equal(t, "cancelled", result.Status)
	})

	t.Run("Customer without subscriptions falls back to trial", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		trialEnd := time.Now().Add(3 * 24 * time.Hour)
		_ = repo.Create(&model.Subscription{
			UserID:       "cook-1",
			ProviderType: model.ProviderTypeHomeCook,
			Status:       model.SubscriptionStatusTrial,
			TrialEndsAt:  &trialEnd,
		})

		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("FindCustomerByEmail", ctx, "cook@example.com").Return("cus_42", nil)
		pay.On("LatestSubscription", ctx, "cus_42").Return(nil, nil)

		svc := NewSubscriptionService(repo, userRepo, pay)
		result, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHomeCook)

		assert.NoError(t, err)
		assert.True(t, result.Subscribed)
		assert.Equal(t, "trial", result.Status)
	})

	t.Run("Provider type mismatch rejected", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)

		svc := NewSubscriptionService(newFakeSubscriptionRepo(), userRepo, pay)
		_, err := svc.CheckStatus(ctx, "cook-1", model.ProviderTypeHouseWorker)

		assert.Error(t, err)
		pay.AssertNotCalled(t, "FindCustomerByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Client role rejected", func(t *testing.T) {
		client := providerUser("client-1")
		client.Role = userModel.RoleClient
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "client-1").Return(client, nil)

		svc := NewSubscriptionService(newFakeSubscriptionRepo(), userRepo, new(MockPayments))
		_, err := svc.CheckStatus(ctx, "client-1", model.ProviderTypeHomeCook)
		assert.Error(t, err)
	})
}

func TestStartTrial(t *testing.T) {
	config.GlobalConfig.Stripe.TrialDays = 30

	t.Run("Creates trial record", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := NewSubscriptionService(repo, new(MockUserRepo), new(MockPayments))

		err := svc.StartTrial("cook-1", model.ProviderTypeHomeCook)
		assert.NoError(t, err)

		stored, err := repo.GetByUserID("cook-1")
		assert.NoError(t, err)
		assert.Equal(t, model.SubscriptionStatusTrial, stored.Status)
		assert.NotNil(t, stored.TrialEndsAt)
		assert.Equal(t, 30, model.DaysLeft(time.Now(), *stored.TrialEndsAt))
	})

	t.Run("Existing record is not reset", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		oldEnd := time.Now().Add(-time.Hour)
		_ = repo.Create(&model.Subscription{
			UserID:       "cook-1",
			ProviderType: model.ProviderTypeHomeCook,
			Status:       model.SubscriptionStatusExpired,
			TrialEndsAt:  &oldEnd,
		})

		svc := NewSubscriptionService(repo, new(MockUserRepo), new(MockPayments))
		err := svc.StartTrial("cook-1", model.ProviderTypeHomeCook)
		assert.NoError(t, err)

		stored, _ := repo.GetByUserID("cook-1")
		assert.Equal(t, model.SubscriptionStatusExpired, stored.Status)
	})
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()
	config.GlobalConfig.Stripe.TrialDays = 30
	config.GlobalConfig.Stripe.HomeCookPriceID = "price_home_cook"

	t.Run("Provider gets checkout url", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(providerUser("cook-1"), nil)
		pay := new(MockPayments)
		pay.On("EnsureCustomer", ctx, "cook@example.com", "Um Ahmed").Return("cus_42", nil)
		pay.On("CreateSubscriptionCheckout", ctx, payments.SubscriptionCheckoutParams{
			CustomerID: "cus_42",
			PriceID:    "price_home_cook",
			TrialDays:  30,
		}).Return("https://checkout.example/sub/1", nil)

		svc := NewSubscriptionService(newFakeSubscriptionRepo(), userRepo, pay)
		url, err := svc.CreateCheckout(ctx, "cook-1")

		assert.NoError(t, err)
		assert.Equal(t, "https://checkout.example/sub/1", url)
	})

	t.Run("Missing email rejected", func(t *testing.T) {
		cook := providerUser("cook-1")
		cook.Email = ""
		userRepo := new(MockUserRepo)
		userRepo.On("GetByID", "cook-1").Return(cook, nil)

		svc := NewSubscriptionService(newFakeSubscriptionRepo(), userRepo, new(MockPayments))
		_, err := svc.CreateCheckout(ctx, "cook-1")
		assert.Error(t, err)
	})
}
