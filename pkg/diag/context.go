package diag

import (
	"context"

	uuid "github.com/satori/go.uuid"
)

type contextKeys string

const operationIDKey contextKeys = "operationID"

// NewOperationID - generates a new random operation id
func NewOperationID() string {
	return uuid.NewV4().String()
}

// ContextWithOperationID - create context with operationID
func ContextWithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, operationIDKey, operationID)
}

// OperationIDValue - returns operationID value taken from context
func OperationIDValue(ctx context.Context) string {
	val := ctx.Value(operationIDKey)
	if val == nil {
		return ""
	}
	return val.(string)
}
