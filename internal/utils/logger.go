package utils

import "go.uber.org/zap"

// NewLogger builds the process logger. Debug mode switches to the human
// readable development encoder.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
