package helper

import (
	"context"
	"strings"
)

type requestContextKey string

const batchIDContextKey requestContextKey = "batch_id"

func WithBatchID(ctx context.Context, batchID string) context.Context {
	cleaned := strings.TrimSpace(batchID)
	if cleaned == "" {
		return ctx
	}

	return context.WithValue(ctx, batchIDContextKey, cleaned)
}

func BatchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	value, _ := ctx.Value(batchIDContextKey).(string)
	return value
}
