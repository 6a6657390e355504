package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"sofra_market/internal/pkg/config"
	"sofra_market/pkg/metrics"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeClient Stripe 支付客户端实现
type StripeClient struct {
	api     *client.API
	cfg     config.StripeConfig
	metrics *metrics.MetricsCollector
}

// NewStripeClient 创建 Stripe 客户端
func NewStripeClient() (*StripeClient, error) {
	cfg := config.GlobalConfig.Stripe
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe config missing")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeClient{
		api:     api,
		cfg:     cfg,
		metrics: metrics.GetGlobalCollector(),
	}, nil
}

// EnsureCustomer 按邮箱查找客户，不存在则创建
func (s *StripeClient) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	start := time.Now()

	id, err := s.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	cust, err := s.api.Customers.New(params)
	s.metrics.RecordPaymentCall("customer_create", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// FindCustomerByEmail 按邮箱查找客户
func (s *StripeClient) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	start := time.Now()

	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.api.Customers.List(params)
	for iter.Next() {
		s.metrics.RecordPaymentCall("customer_lookup", nil, time.Since(start))
		return iter.Customer().ID, nil
	}

	err := iter.Err()
	s.metrics.RecordPaymentCall("customer_lookup", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return "", nil
}

// CreateOrderCheckout 创建订单支付会话
// 关键点: PaymentIntentData.CaptureMethod = manual，资金只冻结不划转，
// 等双方确认后再由 CapturePayment 完成划转
func (s *StripeClient) CreateOrderCheckout(ctx context.Context, p OrderCheckoutParams) (*CheckoutResult, error) {
	start := time.Now()

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(p.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(p.UnitAmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ItemName),
					},
				},
				Quantity: stripe.Int64(p.Quantity),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripe.String("manual"),
			Metadata:      p.Metadata,
		},
	}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := s.api.CheckoutSessions.New(params)
	s.metrics.RecordPaymentCall("order_checkout", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		SessionID: sess.ID,
		URL:       sess.URL,
	}
	if sess.PaymentIntent != nil {
		result.PaymentIntentID = sess.PaymentIntent.ID
	}
	return result, nil
}

// CapturePayment 捕获冻结的资金
func (s *StripeClient) CapturePayment(ctx context.Context, holdRef string) error {
	start := time.Now()

	intentID, err := s.resolveIntentID(ctx, holdRef)
	if err != nil {
		s.metrics.RecordPaymentCall("capture", err, time.Since(start))
		return err
	}

	captureParams := &stripe.PaymentIntentCaptureParams{}
	captureParams.Context = ctx

	_, err = s.api.PaymentIntents.Capture(intentID, captureParams)
	if err != nil && isAlreadySettled(err) {
		// 另一方的确认请求可能已经触发过捕获，视为成功
		err = nil
	}
	s.metrics.RecordPaymentCall("capture", err, time.Since(start))
	return err
}

// CancelPayment 撤销未捕获的冻结资金
func (s *StripeClient) CancelPayment(ctx context.Context, holdRef string) error {
	start := time.Now()

	intentID, err := s.resolveIntentID(ctx, holdRef)
	if err != nil {
		s.metrics.RecordPaymentCall("cancel", err, time.Since(start))
		return err
	}

	cancelParams := &stripe.PaymentIntentCancelParams{}
	cancelParams.Context = ctx

	_, err = s.api.PaymentIntents.Cancel(intentID, cancelParams)
	if err != nil && isAlreadySettled(err) {
		// 重复取消，视为成功
		err = nil
	}
	s.metrics.RecordPaymentCall("cancel", err, time.Since(start))
	return err
}

// GetCheckoutStatus 查询支付会话的资金冻结状态
// 手动捕获模式下完成支付的会话，其 PaymentIntent 处于 requires_capture
func (s *StripeClient) GetCheckoutStatus(ctx context.Context, sessionID string) (*CheckoutStatus, error) {
	start := time.Now()

	sessParams := &stripe.CheckoutSessionParams{}
	sessParams.Context = ctx
	sessParams.AddExpand("payment_intent")

	sess, err := s.api.CheckoutSessions.Get(sessionID, sessParams)
	s.metrics.RecordPaymentCall("session_verify", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	status := &CheckoutStatus{}
	if sess.PaymentIntent != nil {
		status.PaymentIntentID = sess.PaymentIntent.ID
		status.FundsHeld = sess.PaymentIntent.Status == stripe.PaymentIntentStatusRequiresCapture ||
			sess.PaymentIntent.Status == stripe.PaymentIntentStatusSucceeded
	}
	return status, nil
}

// resolveIntentID 把冻结凭据换算成 PaymentIntent ID
// 兼容存的是 Checkout Session ID 的情况：先取会话拿到 PaymentIntent
func (s *StripeClient) resolveIntentID(ctx context.Context, holdRef string) (string, error) {
	if !strings.HasPrefix(holdRef, "cs_") {
		return holdRef, nil
	}

	sessParams := &stripe.CheckoutSessionParams{}
	sessParams.Context = ctx
	sessParams.AddExpand("payment_intent")

	sess, err := s.api.CheckoutSessions.Get(holdRef, sessParams)
	if err != nil {
		return "", err
	}
	if sess.PaymentIntent == nil {
		return "", errors.New("checkout session has no payment intent")
	}
	return sess.PaymentIntent.ID, nil
}

// isAlreadySettled 判断是否为重复捕获/重复取消错误
func isAlreadySettled(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
		return true
	}
	return strings.Contains(stripeErr.Msg, "already been captured") ||
		strings.Contains(stripeErr.Msg, "already been canceled")
}

// LatestSubscription 获取客户最近一个订阅
func (s *StripeClient) LatestSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
	start := time.Now()

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.api.Subscriptions.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		s.metrics.RecordPaymentCall("subscription_lookup", nil, time.Since(start))

		info := &SubscriptionInfo{
			ID:     sub.ID,
			Status: string(sub.Status),
		}
		// current_period_end 挂在订阅项上
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			info.PeriodEnd = time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0)
		}
		return info, nil
	}

	err := iter.Err()
	s.metrics.RecordPaymentCall("subscription_lookup", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// CreateSubscriptionCheckout 创建订阅支付会话
func (s *StripeClient) CreateSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (string, error) {
	start := time.Now()

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(p.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if p.TrialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(p.TrialDays),
		}
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	s.metrics.RecordPaymentCall("subscription_checkout", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// 确保实现了接口
var _ Client = (*StripeClient)(nil)
