package maple

import "go.uber.org/zap"

// NewDevelopmentLogger returns a human-readable, debug-level logger
// suitable for WithLogger during development or tests.
func NewDevelopmentLogger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewProductionLogger returns a JSON, info-level-and-above logger
// suitable for WithLogger in production use.
func NewProductionLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
