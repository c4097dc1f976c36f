package services

// Error codes returned across the service boundary. Closed set; controllers
// pass them through verbatim so clients can branch on them.
const (
	CodeEmptyCart                 = "EMPTY_CART"
	CodeInvalidPriceData          = "INVALID_PRICE_DATA"
	CodePaymentGatewayUnavailable = "PAYMENT_GATEWAY_UNAVAILABLE"
	CodeInvalidAddress            = "INVALID_ADDRESS"
	CodeOrderNotFound             = "ORDER_NOT_FOUND"
	CodeSignatureMismatch         = "SIGNATURE_MISMATCH"
	CodeOrderNotCancellable       = "ORDER_NOT_CANCELLABLE"
	CodeInvalidStatusTransition   = "INVALID_STATUS_TRANSITION"
	CodeInvalidInput              = "INVALID_INPUT"
	CodeInternal                  = "INTERNAL"
)

// ServiceError is a typed error with an HTTP status code and a stable
// machine-readable code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

func newError(status int, code, message string) *ServiceError {
	return &ServiceError{StatusCode: status, Code: code, Message: message}
}

func internalError(message string) *ServiceError {
	return newError(500, CodeInternal, message)
}
