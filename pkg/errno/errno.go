package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrConfiguration    = Errno{Code: 10005, Message: "Missing required setting or secret"}
)

// Business Errors (20000+)
var (
	ErrUserNotFound      = Errno{Code: 20101, Message: "User not found"}
	ErrAccountNotFound   = Errno{Code: 20201, Message: "Collection account not found"}
	ErrNoWithdrawAddress = Errno{Code: 20202, Message: "User has no withdraw address on file"}
	ErrInsufficientFunds = Errno{Code: 20301, Message: "No payout wallet with sufficient balance"}
	ErrDuplicateOrder    = Errno{Code: 20401, Message: "Order already settled"}
	ErrDuplicateSource   = Errno{Code: 20402, Message: "Withdrawal already recorded for source"}
	ErrGameDisabled      = Errno{Code: 20501, Message: "Game variant disabled"}
	ErrUpstream          = Errno{Code: 20601, Message: "Gateway upstream error"}
)

// IsConflict 判断是否为幂等冲突类错误 (uniqueness rejection)。
// 冲突按 "已经结算过" 处理，只打 debug 日志，绝不算失败。
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateOrder) || errors.Is(err, ErrDuplicateSource)
}
