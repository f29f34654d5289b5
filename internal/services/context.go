package services

import "context"

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	stageKey   contextKey = "stage"
	rowKey     contextKey = "row_index"
	userIDKey  contextKey = "user_id"
)

// WithBatchID annotates context with the import batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the import batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRowIndex annotates context with the spreadsheet row being processed.
func WithRowIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, rowKey, index)
}

// RowIndexFromContext extracts the spreadsheet row index if present.
func RowIndexFromContext(ctx context.Context) (int, bool) {
	switch v := ctx.Value(rowKey).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// WithUserID annotates context with the importing user.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the importing user if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
