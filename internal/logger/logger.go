package logger

import (
	"go.uber.org/zap"
)

var log *zap.Logger = zap.NewNop()

// Init builds the process logger. Call once from main before anything logs.
func Init(env string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)

	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	log = l
	return l, nil
}

func L() *zap.Logger {
	return log
}
