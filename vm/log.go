package vm

import "github.com/tliron/commonlog"

// logger returns the package logger. It is looked up on each use so a
// backend configured after package initialization still takes effect.
func logger() commonlog.Logger {
	return commonlog.GetLogger("typecore.vm")
}
