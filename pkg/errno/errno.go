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
// Service 层经常用 %w 包一层上下文, 这里沿着错误链找
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptyped *Errno
	if errors.As(err, &ptyped) {
		return ptyped.Code, ptyped.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
// 201xx 请求校验 / 202xx 地址 / 203xx 国库 / 204xx 链上执行 / 205xx 分账
var (
	ErrInvalidAmount         = Errno{Code: 20101, Message: "Amount must be positive"}
	ErrNoRecipients          = Errno{Code: 20102, Message: "At least one recipient is required"}
	ErrUnsupportedChain      = Errno{Code: 20103, Message: "Unsupported chain"}
	ErrAddressNotFound       = Errno{Code: 20201, Message: "Address not found"}
	ErrAddressNotOwned       = Errno{Code: 20202, Message: "Address does not belong to the requesting user"}
	ErrTreasuryNotConfigured = Errno{Code: 20301, Message: "No treasury address configured for this chain/network"}
	ErrInsufficientFunds     = Errno{Code: 20401, Message: "Insufficient funds for transfer"}
	ErrProviderUnavailable   = Errno{Code: 20402, Message: "All chain providers unavailable"}
	ErrTemplateNotFound      = Errno{Code: 20501, Message: "Split payment template not found"}
)
