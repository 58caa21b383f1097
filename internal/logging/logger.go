package logging

import (
	"go.uber.org/zap"
)

var Logger *zap.Logger

func InitLogger(production bool) error {
	var err error
	if production {
		Logger, err = zap.NewProduction()
	} else {
		Logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(Logger)
	return nil
}

// Sugar returns the global sugared logger. InitLogger must run first.
func Sugar() *zap.SugaredLogger {
	return Logger.Sugar()
}
