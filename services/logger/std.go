package logsvc

import (
	"log"
	"os"

	"github.com/trezcool/masomo/core"
)

// StdLogger logs to the standard library logger only. DEV and test default;
// PROD wires RollbarLogger instead.
type StdLogger struct {
	std     *log.Logger
	enabled bool
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	if std == nil {
		std = log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
	}
	return &StdLogger{std: std, enabled: true}
}

func (l *StdLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *StdLogger) log(level, msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *StdLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.std.Fatal(msg)
}
