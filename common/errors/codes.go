package errors

const (
	// Generic codes
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeConflict               = "CONFLICT"
	CodeFailedPrecondition     = "FAILED_PRECONDITION"
	CodeInternalServer         = "INTERNAL_SERVER"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout                = "TIMEOUT"
	CodeEventPublishError      = "EVENT_PUBLISH_ERROR"
	CodeEventSubscribtionError = "EVENT_SUBSCRIPTION_ERROR"
	CodeObjectMarshalError     = "OBJECT_MARSHALL_ERROR"
	CodeObjectUnmarshalError   = "OBJECT_UNMARSHALL_ERROR"
	CodeDatabaseError          = "DATABASE_ERROR"
	CodeTransactionError       = "TRANSACTION_ERROR"
	CodeRedisOperationError    = "REDIS_ERROR"

	// Domain codes
	CodeNotMember = "NOT_MEMBER"
)
