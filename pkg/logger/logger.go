package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

// New builds a sugared zap logger: JSON in prod, console elsewhere.
func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar()
}
