package repositories

import (
	"context"
	"fmt"

	"github.com/statforms/statforms-engine/pkg/database"
	"github.com/statforms/statforms-engine/pkg/models"
)

// LogRepository appends service log entries. It satisfies
// logging.EntryWriter so the zap store sink can persist through it.
type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
}

type logRepository struct {
	db *database.DB
}

// NewLogRepository creates a PostgreSQL-backed log repository.
func NewLogRepository(db *database.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO engine_logs (ts, level, message, caller)
		VALUES ($1, $2, $3, $4)`,
		entry.Timestamp, entry.Level, entry.Message, entry.Caller)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}
