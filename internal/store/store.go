// Package store persists accepted match-record loads in Postgres so the
// statistics model can be rebuilt after a restart.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
)

const batchSize = 500

// RecordLoad is one accepted record set, keyed by its content fingerprint.
type RecordLoad struct {
	ID          uint   `gorm:"primaryKey"`
	Fingerprint string `gorm:"size:16;uniqueIndex;not null"`
	Source      string
	Accepted    int
	Skipped     int
	CreatedAt   time.Time
	Records     []MatchRecord `gorm:"foreignKey:LoadID;constraint:OnDelete:CASCADE"`
}

// MatchRecord keeps the raw fields so replays go through the same
// normalization as the first load.
type MatchRecord struct {
	ID         uint `gorm:"primaryKey"`
	LoadID     uint `gorm:"index;not null"`
	Player     string
	Champion   string
	Team       string
	Side       string
	Won        string
	Kills      string
	Deaths     string
	Assists    string
	CreepScore string
}

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&RecordLoad{}, &MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, logger: log.Named("store")}, nil
}

func fingerprintKey(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// SaveLoad stores an accepted load. Saving a fingerprint twice is a no-op.
func (s *Store) SaveLoad(ctx context.Context, source string, report stats.Report, raw []stats.RawRecord) error {
	key := fingerprintKey(report.Fingerprint)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RecordLoad
		err := tx.Where("fingerprint = ?", key).First(&existing).Error
		if err == nil {
			s.logger.Debug("load already stored", zap.String("fingerprint", key))
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		load := RecordLoad{
			Fingerprint: key,
			Source:      source,
			Accepted:    report.Accepted,
			Skipped:     report.Skipped,
		}
		if err := tx.Create(&load).Error; err != nil {
			return fmt.Errorf("create load: %w", err)
		}
		rows := make([]MatchRecord, len(raw))
		for i, r := range raw {
			rows[i] = MatchRecord{
				LoadID:     load.ID,
				Player:     r.Player,
				Champion:   r.Champion,
				Team:       r.Team,
				Side:       r.Side,
				Won:        r.Won,
				Kills:      r.Kills,
				Deaths:     r.Deaths,
				Assists:    r.Assists,
				CreepScore: r.CreepScore,
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("store records: %w", err)
			}
		}
		s.logger.Info("load stored", zap.String("fingerprint", key), zap.Int("records", len(rows)))
		return nil
	})
}

// StoredLoad is a load as replayed from the database.
type StoredLoad struct {
	Fingerprint uint64
	Source      string
	Records     []stats.RawRecord
}

// Loads returns every stored load in the order it was accepted.
func (s *Store) Loads(ctx context.Context) ([]StoredLoad, error) {
	var loads []RecordLoad
	err := s.db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&loads).Error
	if err != nil {
		return nil, fmt.Errorf("read loads: %w", err)
	}

	out := make([]StoredLoad, 0, len(loads))
	for _, l := range loads {
		fp, err := strconv.ParseUint(l.Fingerprint, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("load %d: bad fingerprint %q: %w", l.ID, l.Fingerprint, err)
		}
		recs := make([]stats.RawRecord, len(l.Records))
		for i, r := range l.Records {
			recs[i] = stats.RawRecord{
				Player:     r.Player,
				Champion:   r.Champion,
				Team:       r.Team,
				Side:       r.Side,
				Won:        r.Won,
				Kills:      r.Kills,
				Deaths:     r.Deaths,
				Assists:    r.Assists,
				CreepScore: r.CreepScore,
			}
		}
		out = append(out, StoredLoad{Fingerprint: fp, Source: l.Source, Records: recs})
	}
	return out, nil
}

// Clear removes every stored load.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Select("Records").Delete(&RecordLoad{}).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
