package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/coordflow/types"
)

// sessionRecord 会话表行
type sessionRecord struct {
	ThreadID  string    `gorm:"column:thread_id;primaryKey"`
	State     []byte    `gorm:"column:state"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sessionRecord) TableName() string { return "sessions" }

// GormStore 关系库会话存储
// 方言按 DSN 选择：postgres:// → postgres，mysql:// 或 user@tcp(... → mysql，
// 其余按 sqlite 文件（含 :memory:）处理。建表走 AutoMigrate。
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore opens the database for cfg.DSN and migrates the sessions
// table.
func NewGormStore(cfg DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	db, err := gorm.Open(dialectorFor(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sessions table: %w", err)
	}

	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_session_store")),
	}, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn)
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://"))
	case strings.Contains(dsn, "@tcp("):
		return mysql.Open(dsn)
	default:
		return sqlite.Open(dsn)
	}
}

// Load fetches and decodes the thread state; a missing row yields a fresh
// empty state.
func (s *GormStore) Load(ctx context.Context, threadID string) (*types.CoordinationState, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).First(&rec, "thread_id = ?", threadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewCoordinationState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("database load failed: %w", err)
	}

	var state types.CoordinationState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// Save upserts the thread state.
func (s *GormStore) Save(ctx context.Context, threadID string, state *types.CoordinationState) error {
	if threadID == "" || state == nil {
		return ErrInvalidInput
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	rec := sessionRecord{
		ThreadID:  threadID,
		State:     raw,
		UpdatedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("database save failed: %w", err)
	}
	s.logger.Debug("session saved",
		zap.String("thread_id", threadID),
		zap.Int("messages", len(state.Messages)),
	)
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
