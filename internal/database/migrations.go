package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

type indexDef struct {
	table   string
	name    string
	columns string
}

// secondaryIndexes are query-path indexes not expressed in model tags
var secondaryIndexes = []indexDef{
	{"tasks", "idx_tasks_created_at", "created_at"},
	{"tasks", "idx_tasks_priority", "priority"},
	{"comments", "idx_comments_task_created", "task_id, created_at"},
	{"brands", "idx_brands_created_at", "created_at"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range secondaryIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}

// MigrateDatabase runs post-AutoMigrate steps
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
