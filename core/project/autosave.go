package project

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/prox/core"
)

// Autosaver runs a save job on a fixed interval until stopped.
type Autosaver struct {
	cron     *cron.Cron
	stopOnce sync.Once
}

// StartAutosave schedules `save` every `interval` (rounded up to the second).
// Ticks never overlap: a tick is skipped while the previous one still runs.
func StartAutosave(interval time.Duration, save func(), logger core.Logger) (*Autosaver, error) {
	if interval <= 0 {
		return nil, errors.Errorf("invalid autosave interval %s", interval)
	}
	cl := cronLogger{logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(interval), cron.FuncJob(save))
	c.Start()
	return &Autosaver{cron: c}, nil
}

// Stop cancels the schedule and waits for a running save to return. Only the first call has an effect.
func (as *Autosaver) Stop() {
	as.stopOnce.Do(func() {
		<-as.cron.Stop().Done()
	})
}

// cronLogger adapts a core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	// scheduling noise
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("autosave: "+msg, append([]interface{}{err}, keysAndValues...)...)
}
