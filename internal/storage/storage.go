package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/NewsPulse/internal/pipeline"
	"github.com/LJTian/NewsPulse/internal/snapshot"
)

const latestKey = "latest"

// CurrentSnapshot 只有一行（key=latest），每次成功运行整体替换，不保留历史
type CurrentSnapshot struct {
	Key         string         `gorm:"primaryKey;size:32" json:"key"`
	Source      string         `gorm:"size:128" json:"source"`
	GeneratedAt string         `gorm:"size:40" json:"generatedAt"`
	Items       int            `json:"items"`
	Document    datatypes.JSON `gorm:"type:jsonb" json:"document"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// SectionRun 每个分区最近一次运行的状态，用于诊断
type SectionRun struct {
	Section     string            `gorm:"primaryKey;size:64" json:"section"`
	Name        string            `gorm:"size:128" json:"name"`
	Outcome     string            `gorm:"size:16;index" json:"outcome"`
	Forced      bool              `json:"forced"`
	Fetched     int               `json:"fetched"`
	Kept        int               `json:"kept"`
	Duplicates  int               `json:"duplicates"`
	WindowedOut int               `json:"windowedOut"`
	Capped      int               `json:"capped"`
	Published   int               `json:"published"`
	Drops       datatypes.JSONMap `gorm:"type:jsonb" json:"drops"`
	Error       string            `gorm:"size:1024" json:"error"`
	RunAt       time.Time         `gorm:"index" json:"runAt"`

	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore redisAddr 为空时不启用缓存
func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&CurrentSnapshot{}, &SectionRun{}); err != nil {
		return nil, err
	}

	s := &Store{DB: db}
	if redisAddr == "" {
		return s, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	s.Redis = rdb

	return s, nil
}

const (
	snapshotCacheKey = "newspulse:snapshot:latest"
	snapshotCacheTTL = 2 * time.Hour
)

func (s *Store) Name() string { return "postgres" }

// Publish 实现 snapshot.Publisher：替换当前快照行，并刷新 Redis 缓存
func (s *Store) Publish(ctx context.Context, doc *snapshot.Document, data []byte) error {
	row := &CurrentSnapshot{
		Key:         latestKey,
		Source:      doc.Source,
		GeneratedAt: doc.GeneratedAt,
		Items:       len(doc.Items),
		Document:    datatypes.JSON(data),
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("save current snapshot: %w", err)
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, snapshotCacheKey, data, snapshotCacheTTL).Err(); err != nil {
			log.Printf("warn: redis set snapshot failed: %v", err)
		}
	}
	return nil
}

// Latest 先查 Redis，未命中再查数据库并回写缓存
func (s *Store) Latest(ctx context.Context) ([]byte, error) {
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, snapshotCacheKey).Bytes(); err == nil && len(bs) > 0 {
			return bs, nil
		}
	}

	var row CurrentSnapshot
	err := s.DB.WithContext(ctx).Where("key = ?", latestKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	data := []byte(row.Document)
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, snapshotCacheKey, data, snapshotCacheTTL).Err()
	}
	return data, nil
}

// RecordRun 实现 pipeline.RunRecorder：按分区 upsert 最近一次运行状态
func (s *Store) RecordRun(ctx context.Context, r *pipeline.Report) error {
	rows := sectionRuns(r)
	if len(rows) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save section runs: %w", err)
	}
	return nil
}

// ListSectionRuns 按分区 key 排序返回
func (s *Store) ListSectionRuns(ctx context.Context) ([]SectionRun, error) {
	var list []SectionRun
	if err := s.DB.WithContext(ctx).Order("section ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func sectionRuns(r *pipeline.Report) []SectionRun {
	rows := make([]SectionRun, 0, len(r.Sections))
	for _, st := range r.Sections {
		outcome := string(r.Outcome)
		if st.Failed() {
			outcome = string(pipeline.OutcomeFailed)
		}
		drops := datatypes.JSONMap{}
		for k, v := range st.Drops {
			drops[k] = v
		}
		rows = append(rows, SectionRun{
			Section:     st.Key,
			Name:        st.Name,
			Outcome:     outcome,
			Forced:      r.Forced,
			Fetched:     st.Fetched,
			Kept:        st.Kept,
			Duplicates:  st.Duplicates,
			WindowedOut: st.WindowedOut,
			Capped:      st.Capped,
			Published:   st.Published,
			Drops:       drops,
			Error:       truncateRunesDB(toValidUTF8(st.Error), 1024),
			RunAt:       r.StartedAt,
		})
	}
	return rows
}

// toValidUTF8 错误信息可能夹带上游返回的非 UTF-8 字节，入库前规范化
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断，确保不超过 varchar 长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
