package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalconsumer/src/database"
	"signalconsumer/src/model"
)

// ExecutionRecordRepository handles persistence for the execution audit
// trail.
type ExecutionRecordRepository struct {
	db *gorm.DB
}

// NewExecutionRecordRepository creates a repository backed by the main
// read/write database.
func NewExecutionRecordRepository() *ExecutionRecordRepository {
	return &ExecutionRecordRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ExecutionRecordRepository) WithDB(db *gorm.DB) *ExecutionRecordRepository {
	return &ExecutionRecordRepository{db: db}
}

// Append inserts one execution record.
func (r *ExecutionRecordRepository) Append(ctx context.Context, rec *model.ExecutionRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "ExecutionRecordRepository",
		"op":      "Append",
		"symbol":  rec.Symbol,
		"outcome": rec.Outcome,
	}).Debug("Appending execution record")

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExecutionRecordRepository",
			"op":   "Append",
		}).WithError(err).Error("Failed to append execution record")
		return err
	}

	return nil
}

// FindRecent returns the latest records, newest first. A non-positive limit
// defaults to 20.
func (r *ExecutionRecordRepository) FindRecent(ctx context.Context, limit int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []model.ExecutionRecord
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExecutionRecordRepository",
			"op":   "FindRecent",
		}).WithError(err).Error("Failed to fetch recent execution records")
		return nil, err
	}

	return records, nil
}

// FindUnprotected returns executed entries that ended up without bracket
// protection, newest first. Operators use this to find naked positions.
func (r *ExecutionRecordRepository) FindUnprotected(ctx context.Context, limit int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []model.ExecutionRecord
	err := r.db.WithContext(ctx).
		Where("outcome = ? AND brackets_attached = ?", model.ExecutionOutcomeExecuted, false).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExecutionRecordRepository",
			"op":   "FindUnprotected",
		}).WithError(err).Error("Failed to fetch unprotected execution records")
		return nil, err
	}

	return records, nil
}
