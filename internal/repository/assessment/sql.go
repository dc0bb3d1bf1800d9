package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kailas-cloud/riskrag/internal/domain"
	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
)

// assessmentModel is the relational row. Input and output are kept as JSON documents.
type assessmentModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"index;size:128"`
	InputData  []byte    `gorm:"not null"`
	OutputData []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (assessmentModel) TableName() string { return "risk_assessments" }

// SQLRepo stores assessments through gorm.
type SQLRepo struct {
	db *gorm.DB
}

// NewSQL creates a gorm-backed repository and migrates its table.
func NewSQL(db *gorm.DB) (*SQLRepo, error) {
	if err := db.AutoMigrate(&assessmentModel{}); err != nil {
		return nil, fmt.Errorf("migrate assessments: %w", err)
	}
	return &SQLRepo{db: db}, nil
}

// Ping checks the underlying connection.
func (r *SQLRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepo) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Save inserts the assessment.
func (r *SQLRepo) Save(ctx context.Context, a domasm.Assessment) error {
	m, err := toModel(a)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert assessment %s: %w", a.ID(), err)
	}
	return nil
}

// Get loads an assessment by ID.
func (r *SQLRepo) Get(ctx context.Context, id string) (domasm.Assessment, error) {
	var m assessmentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domasm.Assessment{}, domain.ErrNotFound
		}
		return domasm.Assessment{}, fmt.Errorf("select assessment %s: %w", id, err)
	}
	return fromModel(m)
}

// ListByUser returns a page of the user's assessments, newest first.
func (r *SQLRepo) ListByUser(ctx context.Context, userID string, skip, limit int) ([]domasm.Assessment, error) {
	if limit <= 0 {
		return []domasm.Assessment{}, nil
	}

	var rows []assessmentModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list assessments %s: %w", userID, err)
	}

	out := make([]domasm.Assessment, 0, len(rows))
	for _, m := range rows {
		a, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// CountByUser returns the number of the user's assessments.
func (r *SQLRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&assessmentModel{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count assessments %s: %w", userID, err)
	}
	return int(n), nil
}

func toModel(a domasm.Assessment) (assessmentModel, error) {
	rec := toRecord(a)
	in, err := json.Marshal(rec.Input)
	if err != nil {
		return assessmentModel{}, fmt.Errorf("marshal input %s: %w", a.ID(), err)
	}
	out, err := json.Marshal(rec.Output)
	if err != nil {
		return assessmentModel{}, fmt.Errorf("marshal output %s: %w", a.ID(), err)
	}
	return assessmentModel{
		ID:         rec.ID,
		UserID:     rec.UserID,
		InputData:  in,
		OutputData: out,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

func fromModel(m assessmentModel) (domasm.Assessment, error) {
	rec := record{ID: m.ID, UserID: m.UserID, CreatedAt: m.CreatedAt}
	if err := json.Unmarshal(m.InputData, &rec.Input); err != nil {
		return domasm.Assessment{}, fmt.Errorf("unmarshal input %s: %w", m.ID, err)
	}
	if err := json.Unmarshal(m.OutputData, &rec.Output); err != nil {
		return domasm.Assessment{}, fmt.Errorf("unmarshal output %s: %w", m.ID, err)
	}
	return fromRecord(rec), nil
}
