package pipeline

import (
	"errors"
	"time"
)

// ErrAllSectionsFailed 所有分区都抓取或解析失败，本次不写快照
var ErrAllSectionsFailed = errors.New("all sections failed")

type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// SectionStats 单个分区在各阶段的计数
type SectionStats struct {
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Fetched     int            `json:"fetched"`
	Kept        int            `json:"kept"`
	Drops       map[string]int `json:"drops"`
	Duplicates  int            `json:"duplicates"`
	WindowedOut int            `json:"windowed_out"`
	Capped      int            `json:"capped"`
	Published   int            `json:"published"`
	Error       string         `json:"error,omitempty"`
}

// Failed 分区是否在抓取或解析阶段失败
func (s SectionStats) Failed() bool { return s.Error != "" }

// Report 一次运行的结果与诊断信息
type Report struct {
	Outcome    Outcome           `json:"outcome"`
	Forced     bool              `json:"forced"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	LocalHour  int               `json:"local_hour"`
	Items      int               `json:"items"`
	Sections   []SectionStats    `json:"sections"`
	Mirrors    map[string]string `json:"mirrors,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Section 按 key 查找分区统计
func (r *Report) Section(key string) (SectionStats, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return SectionStats{}, false
}
