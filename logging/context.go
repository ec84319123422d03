package logging

import (
	"context"

	"go.viam.com/utils"
)

// DebugKeyField is the field carrying the debug key of logs emitted only because their context
// enables debug logging.
const DebugKeyField = "debug_key"

type debugKeyCtxKey struct{}

// EnableDebugMode returns a context under which the C* debug methods log whatever the logger level.
// The key is attached to those logs so that one run or stage can be told apart from another. An
// empty key is replaced by a random one.
func EnableDebugMode(ctx context.Context, key string) context.Context {
	if key == "" {
		key = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugKeyCtxKey{}, key)
}

// IsDebugMode returns whether ctx enables debug logging.
func IsDebugMode(ctx context.Context) bool {
	return DebugKey(ctx) != ""
}

// DebugKey returns the key ctx enables debug logging with, or an empty string.
func DebugKey(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(debugKeyCtxKey{}).(string)
	return key
}

// debugKeyValues appends the debug key of ctx to keysAndValues when the entry would otherwise be
// filtered out by the logger level.
func debugKeyValues(ctx context.Context, levelEnabled bool, keysAndValues []interface{}) []interface{} {
	if levelEnabled {
		return keysAndValues
	}
	out := make([]interface{}, 0, len(keysAndValues)+2)
	out = append(out, keysAndValues...)
	return append(out, DebugKeyField, DebugKey(ctx))
}
