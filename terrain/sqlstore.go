package terrain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pthm-cable/trail/byteconv"
)

// HeightmapModel is one persisted heightmap row.
type HeightmapModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Width     int
	Height    int
	Revision  int64
	Data      []byte // float32 little-endian, row-major
	UpdatedAt time.Time
}

// TableName pins the table name.
func (HeightmapModel) TableName() string { return "heightmaps" }

// SQLStore persists heightmaps in SQLite through GORM, one row per terrain.
type SQLStore struct {
	// mu serializes writes; SQLite rejects concurrent writers.
	mu sync.Mutex
	db *gorm.DB
}

// OpenSQLStore opens (or creates) the database at dsn and migrates the schema.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening heightmap database: %w", err)
	}
	if err := db.AutoMigrate(&HeightmapModel{}); err != nil {
		return nil, fmt.Errorf("migrating heightmap schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// SaveHeights upserts the heightmap and bumps its revision.
func (s *SQLStore) SaveHeights(name string, width, height int, heights []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	data := byteconv.Float32s(heights)
	rec := HeightmapModel{
		Name:      name,
		Width:     width,
		Height:    height,
		Revision:  1,
		Data:      data,
		UpdatedAt: now,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"width":      width,
			"height":     height,
			"data":       data,
			"revision":   gorm.Expr("revision + 1"),
			"updated_at": now,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upserting heightmap: %w", err)
	}
	return nil
}

// LoadHeights returns the latest heights stored under name.
func (s *SQLStore) LoadHeights(name string) (int, int, []float32, error) {
	var rec HeightmapModel
	err := s.db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, 0, nil, fmt.Errorf("loading heightmap: %w", err)
	}
	heights, err := byteconv.DecodeFloat32s(rec.Data)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decoding heightmap %q: %w", name, err)
	}
	return rec.Width, rec.Height, heights, nil
}

// Revision returns how many times name has been saved, 0 if never.
func (s *SQLStore) Revision(name string) (int64, error) {
	var rec HeightmapModel
	err := s.db.Select("revision").Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Revision, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
