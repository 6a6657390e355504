package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists   = 10001
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 菜品模块错误 200xx
	ErrDishNotFound    = 20001
	ErrDishUnavailable = 20002
	ErrDishNotApproved = 20003

	// 订单模块错误 300xx
	ErrOrderNotFound      = 30001
	ErrOrderUnauthorized  = 30002
	ErrOrderBadTransition = 30003
	ErrPaymentFailed      = 30004

	// 订阅模块错误 400xx
	ErrSubscriptionNotFound = 40001
	ErrSubscriptionExpired  = 40002

	// 评价模块错误 600xx
	ErrReviewNotAllowed = 60001
	ErrReviewDuplicate  = 60002

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
