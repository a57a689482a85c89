package logger

import "sync"

var ParseLevel = parseLevel

func ResetLoggerSingleton() {
	loggerInstance = nil
	loggerErr = nil
	loggerOnce = sync.Once{}
}
