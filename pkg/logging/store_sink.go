package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statforms/statforms-engine/pkg/models"
)

// EntryWriter persists a single log entry. Implemented by
// repositories.LogRepository; declared here to avoid the import cycle.
type EntryWriter interface {
	Append(ctx context.Context, entry *models.LogEntry) error
}

// storeCore mirrors selected entries into the logs table. Writes go through a
// buffered channel so logging never blocks on the database; entries are
// dropped if the buffer is full.
type storeCore struct {
	zapcore.LevelEnabler
	writer EntryWriter
	ch     chan *models.LogEntry
	done   chan struct{}
}

// AttachStore returns a logger that additionally persists entries at or above
// min via the given writer. Call the returned stop function during shutdown
// to drain the buffer.
func AttachStore(base *zap.Logger, writer EntryWriter, min zapcore.Level) (*zap.Logger, func()) {
	core := &storeCore{
		LevelEnabler: min,
		writer:       writer,
		ch:           make(chan *models.LogEntry, 256),
		done:         make(chan struct{}),
	}
	go core.run()

	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))

	stop := func() {
		close(core.ch)
		<-core.done
	}
	return logger, stop
}

func (c *storeCore) run() {
	defer close(c.done)
	for entry := range c.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.writer.Append(ctx, entry)
		cancel()
	}
}

func (c *storeCore) With([]zapcore.Field) zapcore.Core { return c }

func (c *storeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *storeCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	entry := &models.LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Caller:    ent.Caller.TrimmedPath(),
	}
	select {
	case c.ch <- entry:
	default:
		// Buffer full; the stdout core still has the entry.
	}
	return nil
}

func (c *storeCore) Sync() error { return nil }
