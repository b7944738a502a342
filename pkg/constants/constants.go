package constants

import (
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	TxKey        contextKey = "tx"
	PoolKey      contextKey = "pool"
	LoggerKey    contextKey = "logger"
	TenantIDKey  contextKey = "tenant_id"
	UserIDKey    contextKey = "user_id"
	RequestIDKey contextKey = "request_id"
	RequestStart contextKey = "request_start"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
