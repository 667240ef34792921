package logsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/prox/core"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// RollbarLogger reports to Rollbar (when enabled) and prints to a std logger.
type RollbarLogger struct {
	std      *log.Logger
	minLevel level
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the rollbar client from `conf`. Debug messages are only printed in debug mode.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	minLevel := levelInfo
	if conf.Debug {
		minLevel = levelDebug
	}
	return &RollbarLogger{std: std, minLevel: minLevel}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush waits for pending rollbar reports.
func (l *RollbarLogger) Flush() {
	rollbar.Wait()
}

// splitArgs pulls the first core.Identity out of `args`.
// expected fmt: error, map[string]interface{}, core.Identity
func splitArgs(args []interface{}) (core.Identity, bool, []interface{}) {
	var (
		identity core.Identity
		found    bool
	)
	rest := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if id, ok := arg.(core.Identity); ok {
			if !found {
				identity, found = id, true
			}
			continue
		}
		rest = append(rest, arg)
	}
	return identity, found, rest
}

func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	if lvl < l.minLevel {
		return
	}
	identity, hasIdentity, rest := splitArgs(args)

	if hasIdentity {
		rollbar.SetPerson(identity.ID, identity.Username, identity.Email)
	} else {
		rollbar.ClearPerson()
	}
	report := append([]interface{}{msg}, rest...)
	switch lvl {
	case levelDebug:
		rollbar.Debug(report...)
	case levelInfo:
		rollbar.Info(report...)
	case levelWarn:
		rollbar.Warning(report...)
	case levelError:
		rollbar.Error(report...)
	case levelFatal:
		rollbar.Critical(report...)
	}

	l.std.Println(format(lvl, msg, identity, hasIdentity, rest))
}

func format(lvl level, msg string, identity core.Identity, hasIdentity bool, args []interface{}) string {
	var b strings.Builder
	b.WriteString(levelNames[lvl])
	b.WriteString(": ")
	b.WriteString(msg)
	if hasIdentity {
		fmt.Fprintf(&b, " [user=%s]", identity.ID)
	}
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			fmt.Fprintf(&b, "\n\t%+v", err)
			continue
		}
		fmt.Fprintf(&b, "\n\t%v", arg)
	}
	return b.String()
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(levelDebug, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(levelInfo, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(levelWarn, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(levelError, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
