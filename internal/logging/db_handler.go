package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dbBatchSize = 50

// DBHandler is an slog.Handler that batches ERROR+ records into system_logs.
type DBHandler struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	attrs  []slog.Attr
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewDBHandler(db *gorm.DB, flushInterval time.Duration) *DBHandler {
	h := &DBHandler{
		db:     db,
		buffer: make([]models.SystemLog, 0, dbBatchSize),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}
	go h.flushLoop()
	return h
}

func (h *DBHandler) flushLoop() {
	for {
		select {
		case <-h.ticker.C:
			h.Flush()
		case <-h.done:
			h.Flush()
			return
		}
	}
}

// Flush writes buffered records immediately.
func (h *DBHandler) Flush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.buffer
	h.buffer = make([]models.SystemLog, 0, dbBatchSize)
	h.mu.Unlock()

	if err := h.db.CreateInBatches(batch, dbBatchSize).Error; err != nil {
		// slog would feed this failure back into the buffer
		fmt.Fprintf(os.Stderr, "failed to flush system logs to DB: %v (count=%d)\n", err, len(batch))
	}
}

func (h *DBHandler) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			if v, ok := uintValue(a.Value); ok {
				entry.UserID = &v
			}
		case "task_id":
			if v, ok := uintValue(a.Value); ok {
				entry.TaskID = &v
			}
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	needFlush := len(h.buffer) >= dbBatchSize
	h.mu.Unlock()

	if needFlush {
		go h.Flush()
	}
	return nil
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dbHandlerView{parent: h, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *DBHandler) WithGroup(string) slog.Handler {
	return h
}

// dbHandlerView shares the parent's buffer while carrying extra attrs.
type dbHandlerView struct {
	parent *DBHandler
	attrs  []slog.Attr
}

func (v *dbHandlerView) Enabled(ctx context.Context, level slog.Level) bool {
	return v.parent.Enabled(ctx, level)
}

func (v *dbHandlerView) Handle(ctx context.Context, record slog.Record) error {
	r := record.Clone()
	r.AddAttrs(v.attrs...)
	return v.parent.Handle(ctx, r)
}

func (v *dbHandlerView) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dbHandlerView{parent: v.parent, attrs: append(append([]slog.Attr{}, v.attrs...), attrs...)}
}

func (v *dbHandlerView) WithGroup(string) slog.Handler {
	return v
}

func uintValue(v slog.Value) (uint64, bool) {
	switch v.Kind() {
	case slog.KindUint64:
		return v.Uint64(), true
	case slog.KindInt64:
		if v.Int64() >= 0 {
			return uint64(v.Int64()), true
		}
	}
	return 0, false
}
