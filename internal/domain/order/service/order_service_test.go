package service

import (
	"context"
	"errors"
	"testing"
	"time"

	dishModel "sofra_market/internal/domain/dish/model"
	"sofra_market/internal/domain/order/model"
	userModel "sofra_market/internal/domain/user/model"
	"sofra_market/internal/pkg/payments"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// fakeOrderRepo 内存订单仓库
// 每次读写都复制一份，模拟真实数据库的落库语义
type fakeOrderRepo struct {
	orders map[string]model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]model.Order)}
}

func (r *fakeOrderRepo) Create(order *model.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) GetByID(id string) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := o
	return &copied, nil
}

func (r *fakeOrderRepo) GetBySessionID(sessionID string) (*model.Order, error) {
	for _, o := range r.orders {
		if o.StripeSessionID == sessionID {
			copied := o
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) ListByClient(clientID string, offset, limit int) ([]model.Order, int64, error) {
	var result []model.Order
	for _, o := range r.orders {
		if o.ClientID == clientID {
			result = append(result, o)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeOrderRepo) ListByCook(cookID string, offset, limit int) ([]model.Order, int64, error) {
	var result []model.Order
	for _, o := range r.orders {
		if o.CookID == cookID {
			result = append(result, o)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeOrderRepo) Update(order *model.Order) error {
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) HasCompletedOrder(clientID, cookID string) (bool, error) {
	for _, o := range r.orders {
		if o.ClientID == clientID && o.CookID == cookID && o.Status == model.OrderStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

// MockDishRepo 菜品仓库 mock
type MockDishRepo struct {
	mock.Mock
}

func (m *MockDishRepo) Create(dish *dishModel.Dish) error {
	return m.Called(dish).Error(0)
}

func (m *MockDishRepo) GetByID(id string) (*dishModel.Dish, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dishModel.Dish), args.Error(1)
}

func (m *MockDishRepo) ListApproved(category string, offset, limit int) ([]dishModel.Dish, int64, error) {
	args := m.Called(category, offset, limit)
	return args.Get(0).([]dishModel.Dish), args.Get(1).(int64), args.Error(2)
}

func (m *MockDishRepo) ListByCook(cookID string, offset, limit int) ([]dishModel.Dish, int64, error) {
	args := m.Called(cookID, offset, limit)
	return args.Get(0).([]dishModel.Dish), args.Get(1).(int64), args.Error(2)
}

func (m *MockDishRepo) ListPending(offset, limit int) ([]dishModel.Dish, int64, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]dishModel.Dish), args.Get(1).(int64), args.Error(2)
}

func (m *MockDishRepo) Update(dish *dishModel.Dish) error {
	return m.Called(dish).Error(0)
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

func approvedDish(cookID string) *dishModel.Dish {
	d := &dishModel.Dish{
		CookID:    cookID,
		Price:     50.00,
		Name:      "كبسة",
		Status:    dishModel.DishStatusApproved,
		Available: true,
	}
	d.ID = uuid.New().String()
	return d
}

func clientUser(id string) *userModel.User {
	u := &userModel.User{
		Email:    "client@example.com",
		Nickname: "Sara",
		Role:     userModel.RoleClient,
	}
	u.ID = id
	return u
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success with fee breakdown", func(t *testing.T) {
		repo := newFakeOrderRepo()
		dishRepo := new(MockDishRepo)
		userRepo := new(MockUserRepo)
		pay := new(MockPayments)

		dish := approvedDish("cook-1")
		dishRepo.On("GetByID", dish.ID).Return(dish, nil)
		userRepo.On("GetByID", "client-1").Return(clientUser("client-1"), nil)
		pay.On("EnsureCustomer", ctx, "client@example.com", "Sara").Return("cus_123", nil)
		pay.On("CreateOrderCheckout", ctx, mock.MatchedBy(func(p payments.OrderCheckoutParams) bool {
			return p.CustomerID == "cus_123" && p.UnitAmountCents == 5000 && p.Quantity == 3
		})).Return(&payments.CheckoutResult{
			SessionID:       "cs_test_1",
			PaymentIntentID: "pi_test_1",
			URL:             "https://checkout.example/s/1",
		}, nil)

		svc := NewOrderService(repo, dishRepo, userRepo, pay, nil)
		result, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: dish.ID, Quantity: 3})

		assert.NoError(t, err)
		assert.Equal(t, 150.00, result.Order.TotalAmount)
		assert.Equal(t, 15.00, result.Order.PlatformFee)
		assert.Equal(t, 135.00, result.Order.CookAmount)
		assert.Equal(t, "https://checkout.example/s/1", result.URL)

		stored, _ := repo.GetByID(result.Order.ID)
		assert.Equal(t, "pi_test_1", stored.PaymentHoldRef)
		assert.Equal(t, "cs_test_1", stored.StripeSessionID)
		assert.Equal(t, model.OrderStatusPending, stored.Status)
	})

	t.Run("Falls back to session id as hold ref", func(t *testing.T) {
		repo := newFakeOrderRepo()
		dishRepo := new(MockDishRepo)
		userRepo := new(MockUserRepo)
		pay := new(MockPayments)

		dish := approvedDish("cook-1")
		dishRepo.On("GetByID", dish.ID).Return(dish, nil)
		userRepo.On("GetByID", "client-1").Return(clientUser("client-1"), nil)
		pay.On("EnsureCustomer", ctx, mock.Anything, mock.Anything).Return("cus_123", nil)
		pay.On("CreateOrderCheckout", ctx, mock.Anything).Return(&payments.CheckoutResult{
			SessionID: "cs_test_2",
			URL:       "https://checkout.example/s/2",
		}, nil)

		svc := NewOrderService(repo, dishRepo, userRepo, pay, nil)
		result, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: dish.ID, Quantity: 1})

		assert.NoError(t, err)
		stored, _ := repo.GetByID(result.Order.ID)
		assert.Equal(t, "cs_test_2", stored.PaymentHoldRef)
	})

	t.Run("Unapproved dish rejected", func(t *testing.T) {
		repo := newFakeOrderRepo()
		dishRepo := new(MockDishRepo)
		pay := new(MockPayments)

		dish := approvedDish("cook-1")
		dish.Status = dishModel.DishStatusPending
		dishRepo.On("GetByID", dish.ID).Return(dish, nil)

		svc := NewOrderService(repo, dishRepo, new(MockUserRepo), pay, nil)
		_, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: dish.ID, Quantity: 1})

		assert.Error(t, err)
		pay.AssertNotCalled(t, "CreateOrderCheckout", mock.Anything, mock.Anything)
	})

	t.Run("Unavailable dish rejected", func(t *testing.T) {
		repo := newFakeOrderRepo()
		dishRepo := new(MockDishRepo)

		dish := approvedDish("cook-1")
		dish.Available = false
		dishRepo.On("GetByID", dish.ID).Return(dish, nil)

		svc := NewOrderService(repo, dishRepo, new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: dish.ID, Quantity: 1})
		assert.Error(t, err)
	})

	t.Run("Checkout failure marks order failed", func(t *testing.T) {
		repo := newFakeOrderRepo()
		dishRepo := new(MockDishRepo)
		userRepo := new(MockUserRepo)
		pay := new(MockPayments)

		dish := approvedDish("cook-1")
		dishRepo.On("GetByID", dish.ID).Return(dish, nil)
		userRepo.On("GetByID", "client-1").Return(clientUser("client-1"), nil)
		pay.On("EnsureCustomer", ctx, mock.Anything, mock.Anything).Return("cus_123", nil)
		pay.On("CreateOrderCheckout", ctx, mock.Anything).Return(nil, errors.New("stripe is down"))

		svc := NewOrderService(repo, dishRepo, userRepo, pay, nil)
		_, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: dish.ID, Quantity: 2})

		assert.Error(t, err)
		assert.Len(t, repo.orders, 1)
		for _, o := range repo.orders {
			assert.Equal(t, model.OrderStatusFailed, o.Status)
			assert.Equal(t, model.PaymentStatusFailed, o.PaymentStatus)
		}
	})

	t.Run("Zero quantity rejected", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.CreateOrder(ctx, "client-1", CreateOrderInput{DishID: "d-1", Quantity: 0})
		assert.Error(t, err)
	})
}

// seedDeliveredOrder 造一个已送达待确认的订单
func seedDeliveredOrder(repo *fakeOrderRepo) *model.Order {
	order := &model.Order{
		ClientID:       "client-1",
		CookID:         "cook-1",
		DishID:         "dish-1",
		DishName:       "كبسة",
		Quantity:       3,
		UnitPrice:      50.00,
		TotalAmount:    150.00,
		PlatformFee:    15.00,
		CookAmount:     135.00,
		Status:         model.OrderStatusDelivered,
		PaymentStatus:  model.PaymentStatusAuthorized,
		PaymentHoldRef: "pi_hold_1",
	}
	_ = repo.Create(order)
	return order
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("Single confirmation does not release", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		result, err := svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, result.ClientConfirmed)
		assert.False(t, result.CookConfirmed)
		assert.False(t, result.EscrowReleased)
		assert.Nil(t, result.Receipt)
		pay.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything)
	})

	t.Run("Both confirmations release escrow", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)
		pay.On("CapturePayment", ctx, "pi_hold_1").Return(nil).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)

		_, err := svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		assert.NoError(t, err)

		result, err := svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)
		assert.NoError(t, err)
		assert.True(t, result.EscrowReleased)
		assert.NotNil(t, result.Receipt)
		assert.Equal(t, 150.00, result.Receipt.TotalAmount)
		assert.Equal(t, 15.00, result.Receipt.PlatformFee)
		assert.Equal(t, 135.00, result.Receipt.CookAmount)

		stored, _ := repo.GetByID(order.ID)
		assert.Equal(t, model.OrderStatusCompleted, stored.Status)
		assert.Equal(t, model.PaymentStatusReleased, stored.PaymentStatus)
		assert.NotNil(t, stored.ReleasedAt)
		assert.NotEmpty(t, stored.Receipt)
		pay.AssertExpectations(t)
	})

	t.Run("Cook first then client also releases", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)
		pay.On("CapturePayment", ctx, "pi_hold_1").Return(nil).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)

		_, err := svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)
		assert.NoError(t, err)

		result, err := svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		assert.NoError(t, err)
		assert.True(t, result.EscrowReleased)
		pay.AssertExpectations(t)
	})

	t.Run("Repeat confirmation after release does not capture again", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)
		pay.On("CapturePayment", ctx, "pi_hold_1").Return(nil).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		_, _ = svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		first, err := svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)
		assert.NoError(t, err)
		firstReleasedAt := first.Receipt.ReleasedAt

		again, err := svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)
		assert.NoError(t, err)
		assert.True(t, again.EscrowReleased)
		assert.Equal(t, firstReleasedAt.Unix(), again.Receipt.ReleasedAt.Unix())

		pay.AssertNumberOfCalls(t, "CapturePayment", 1)
	})

	t.Run("Confirmation timestamp is stable on repeat", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		_, _ = svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		stored1, _ := repo.GetByID(order.ID)

		time.Sleep(10 * time.Millisecond)
		_, _ = svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		stored2, _ := repo.GetByID(order.ID)

		assert.Equal(t, stored1.ClientConfirmedAt, stored2.ClientConfirmedAt)
	})

	t.Run("Wrong party is unauthorized", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.Confirm(ctx, "someone-else", order.ID, ConfirmRoleClient)
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleCook)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Missing order is unauthorized", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.Confirm(ctx, "client-1", uuid.New().String(), ConfirmRoleClient)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Cancelled order cannot be confirmed or captured", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		stored, _ := repo.GetByID(order.ID)
		stored.Status = model.OrderStatusCancelled
		_ = repo.Update(stored)
		pay := new(MockPayments)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)

		_, err := svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		assert.Error(t, err)

		_, err = svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)
		assert.Error(t, err)

		after, _ := repo.GetByID(order.ID)
		assert.Equal(t, model.OrderStatusCancelled, after.Status)
		assert.Nil(t, after.ClientConfirmedAt)
		assert.Nil(t, after.CookConfirmedAt)
		pay.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything)
	})

	t.Run("Unpaid order cannot be confirmed", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := &model.Order{
			ClientID:      "client-1",
			CookID:        "cook-1",
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusPending,
		}
		_ = repo.Create(order)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		assert.Error(t, err)
	})

	t.Run("Capture failure surfaces and keeps order open", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)
		pay := new(MockPayments)
		pay.On("CapturePayment", ctx, "pi_hold_1").Return(errors.New("insufficient funds")).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		_, _ = svc.Confirm(ctx, "client-1", order.ID, ConfirmRoleClient)
		_, err := svc.Confirm(ctx, "cook-1", order.ID, ConfirmRoleCook)

		assert.Error(t, err)
		stored, _ := repo.GetByID(order.ID)
		assert.Equal(t, model.OrderStatusDelivered, stored.Status)
		assert.Equal(t, model.PaymentStatusAuthorized, stored.PaymentStatus)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	newPaidOrder := func(repo *fakeOrderRepo) *model.Order {
		order := &model.Order{
			ClientID:       "client-1",
			CookID:         "cook-1",
			Status:         model.OrderStatusPaid,
			PaymentStatus:  model.PaymentStatusAuthorized,
			PaymentHoldRef: "pi_hold_1",
		}
		_ = repo.Create(order)
		return order
	}

	t.Run("Cook advances through the flow", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPaidOrder(repo)
		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)

		for _, target := range []model.OrderStatus{
			model.OrderStatusPreparing,
			model.OrderStatusReady,
			model.OrderStatusDelivered,
		} {
			updated, err := svc.UpdateStatus(ctx, "cook-1", order.ID, target)
			assert.NoError(t, err)
			assert.Equal(t, target, updated.Status)
		}
	})

	t.Run("Illegal jump rejected", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPaidOrder(repo)
		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)

		_, err := svc.UpdateStatus(ctx, "cook-1", order.ID, model.OrderStatusDelivered)
		assert.Error(t, err)
	})

	t.Run("Only the cook can advance", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPaidOrder(repo)
		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)

		_, err := svc.UpdateStatus(ctx, "client-1", order.ID, model.OrderStatusPreparing)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Cook cancelling a paid order voids the hold", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPaidOrder(repo)
		pay := new(MockPayments)
		pay.On("CancelPayment", ctx, "pi_hold_1").Return(nil).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		updated, err := svc.UpdateStatus(ctx, "cook-1", order.ID, model.OrderStatusCancelled)

		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, updated.Status)
		assert.Equal(t, model.PaymentStatusCancelled, updated.PaymentStatus)
		pay.AssertExpectations(t)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Cancelling a paid order voids the hold", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := &model.Order{
			ClientID:       "client-1",
			CookID:         "cook-1",
			Status:         model.OrderStatusPaid,
			PaymentStatus:  model.PaymentStatusAuthorized,
			PaymentHoldRef: "pi_hold_1",
		}
		_ = repo.Create(order)
		pay := new(MockPayments)
		pay.On("CancelPayment", ctx, "pi_hold_1").Return(nil).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		updated, err := svc.CancelOrder(ctx, "client-1", order.ID)

		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, updated.Status)
		assert.Equal(t, model.PaymentStatusCancelled, updated.PaymentStatus)
		pay.AssertExpectations(t)
	})

	t.Run("Cancelling an unpaid order skips the payment call", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := &model.Order{ClientID: "client-1", CookID: "cook-1", Status: model.OrderStatusPending}
		_ = repo.Create(order)
		pay := new(MockPayments)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		updated, err := svc.CancelOrder(ctx, "client-1", order.ID)

		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, updated.Status)
		pay.AssertNotCalled(t, "CancelPayment", mock.Anything, mock.Anything)
	})

	t.Run("Hold cancellation failure blocks the cancel", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := &model.Order{
			ClientID:       "client-1",
			CookID:         "cook-1",
			Status:         model.OrderStatusPaid,
			PaymentStatus:  model.PaymentStatusAuthorized,
			PaymentHoldRef: "pi_hold_1",
		}
		_ = repo.Create(order)
		pay := new(MockPayments)
		pay.On("CancelPayment", ctx, "pi_hold_1").Return(errors.New("stripe is down")).Once()

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		_, err := svc.CancelOrder(ctx, "client-1", order.ID)

		assert.Error(t, err)
		stored, _ := repo.GetByID(order.ID)
		assert.Equal(t, model.OrderStatusPaid, stored.Status)
	})

	t.Run("Delivered order cannot be cancelled", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := seedDeliveredOrder(repo)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.CancelOrder(ctx, "client-1", order.ID)
		assert.Error(t, err)
	})
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()

	newPendingOrder := func(repo *fakeOrderRepo) *model.Order {
		order := &model.Order{
			ClientID:        "client-1",
			CookID:          "cook-1",
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			PaymentHoldRef:  "cs_test_1",
			StripeSessionID: "cs_test_1",
		}
		_ = repo.Create(order)
		return order
	}

	t.Run("Verified session marks paid and refreshes the hold ref", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPendingOrder(repo)
		pay := new(MockPayments)
		pay.On("GetCheckoutStatus", ctx, "cs_test_1").Return(&payments.CheckoutStatus{
			PaymentIntentID: "pi_test_1",
			FundsHeld:       true,
		}, nil)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		updated, err := svc.MarkPaid(ctx, "cs_test_1")

		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaid, updated.Status)
		assert.Equal(t, model.PaymentStatusAuthorized, updated.PaymentStatus)

		stored, _ := repo.GetByID(order.ID)
		assert.Equal(t, "pi_test_1", stored.PaymentHoldRef)

		// 重复回跳不改变状态，也不再查支付方
		again, err := svc.MarkPaid(ctx, "cs_test_1")
		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaid, again.Status)
		pay.AssertNumberOfCalls(t, "GetCheckoutStatus", 1)
	})

	t.Run("Unpaid session does not mark paid", func(t *testing.T) {
		repo := newFakeOrderRepo()
		order := newPendingOrder(repo)
		pay := new(MockPayments)
		pay.On("GetCheckoutStatus", ctx, "cs_test_1").Return(&payments.CheckoutStatus{FundsHeld: false}, nil)

		svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), pay, nil)
		_, err := svc.MarkPaid(ctx, "cs_test_1")

		assert.Error(t, err)
		stored, _ := repo.GetByID(order.ID)
		assert.Equal(t, model.OrderStatusPending, stored.Status)
		assert.Equal(t, model.PaymentStatusPending, stored.PaymentStatus)
	})

	t.Run("Unknown session errors", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)
		_, err := svc.MarkPaid(ctx, "cs_unknown")
		assert.Error(t, err)
	})
}

func TestGetOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	order := seedDeliveredOrder(repo)
	svc := NewOrderService(repo, new(MockDishRepo), new(MockUserRepo), new(MockPayments), nil)

	t.Run("Parties can read", func(t *testing.T) {
		got, err := svc.GetOrder("client-1", order.ID)
		assert.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)

		_, err = svc.GetOrder("cook-1", order.ID)
		assert.NoError(t, err)
	})

	t.Run("Outsiders cannot", func(t *testing.T) {
		_, err := svc.GetOrder("stranger", order.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
