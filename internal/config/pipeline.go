package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能没有系统时区库

	"gopkg.in/yaml.v3"
)

// 流水线配置校验错误
var (
	ErrNoSections          = errors.New("at least one section is required")
	ErrSectionMissingURL   = errors.New("section url is required")
	ErrInvalidMaxItems     = errors.New("section max_items must be at least 1")
	ErrInvalidWindow       = errors.New("window_hours must be greater than 0")
	ErrInvalidRateLimit    = errors.New("rate_limit_seconds must be non-negative")
	ErrInvalidAllowedHour  = errors.New("allowed_hours entries must be within 0-23")
	ErrInvalidTimezone     = errors.New("timezone must be a valid IANA name")
	ErrInvalidSummaryLimit = errors.New("summary_max_chars must be at least 1")
	ErrInvalidTimeout      = errors.New("request_timeout_seconds must be greater than 0")
)

const (
	defaultSource          = "CBC News"
	defaultTimezone        = "UTC"
	defaultRateLimit       = 1.0
	defaultWindowHours     = 24.0
	DefaultSummaryMaxChars = 500
	defaultRequestTimeout  = 20.0
	defaultOutputPath      = "data/latest.json"
	defaultMaxItems        = 20
)

// Pipeline 对应 config.yml，描述一次采集所需的全部参数
type Pipeline struct {
	Source                string   `yaml:"source"`
	Timezone              string   `yaml:"timezone"`
	RateLimitSeconds      *float64 `yaml:"rate_limit_seconds"`
	WindowHours           *float64 `yaml:"window_hours"`
	AllowedHours          []int    `yaml:"allowed_hours"`
	AllowExtract          bool     `yaml:"allow_extract"`
	SummaryMaxChars       int      `yaml:"summary_max_chars"`
	RequestTimeoutSeconds float64  `yaml:"request_timeout_seconds"`
	OutputPath            string   `yaml:"output_path"`
	UserAgent             string   `yaml:"user_agent"`
	Sections              Sections `yaml:"sections"`

	location *time.Location
}

// Section 单个分区（一个 RSS 源）
type Section struct {
	Key         string   `yaml:"-"`
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	MaxItems    int      `yaml:"-"`
	WindowHours *float64 `yaml:"window_hours"`
}

// sectionYAML 用指针区分"未填写"和显式的 0
type sectionYAML struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	MaxItems    *int     `yaml:"max_items"`
	WindowHours *float64 `yaml:"window_hours"`
}

// Sections 保留 YAML 中 sections 映射的书写顺序，该顺序即去重优先级
type Sections []Section

func (s *Sections) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sections: expected a mapping, got %s", node.Tag)
	}
	out := make(Sections, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.TrimSpace(node.Content[i].Value)
		if key == "" {
			return fmt.Errorf("sections: empty section key at line %d", node.Content[i].Line)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sections: duplicate key %q", key)
		}
		seen[key] = struct{}{}

		var raw sectionYAML
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("sections.%s: %w", key, err)
		}
		sec := Section{Key: key, Name: raw.Name, URL: raw.URL, MaxItems: defaultMaxItems, WindowHours: raw.WindowHours}
		if raw.MaxItems != nil {
			sec.MaxItems = *raw.MaxItems
		}
		out = append(out, sec)
	}
	*s = out
	return nil
}

// LoadPipeline 读取并校验 YAML 配置
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline 解析 YAML 内容，填充默认值后校验
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.Source == "" {
		p.Source = defaultSource
	}
	if p.Timezone == "" {
		p.Timezone = defaultTimezone
	}
	if p.RateLimitSeconds == nil {
		v := defaultRateLimit
		p.RateLimitSeconds = &v
	}
	if p.WindowHours == nil {
		v := defaultWindowHours
		p.WindowHours = &v
	}
	if p.SummaryMaxChars == 0 {
		p.SummaryMaxChars = DefaultSummaryMaxChars
	}
	if p.RequestTimeoutSeconds == 0 {
		p.RequestTimeoutSeconds = defaultRequestTimeout
	}
	if p.OutputPath == "" {
		p.OutputPath = defaultOutputPath
	}
	for i := range p.Sections {
		if p.Sections[i].Name == "" {
			p.Sections[i].Name = p.Sections[i].Key
		}
	}
}

// Validate 检查配置合法性，并缓存解析后的时区
func (p *Pipeline) Validate() error {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, p.Timezone)
	}
	p.location = loc

	if p.RateLimitSeconds != nil && *p.RateLimitSeconds < 0 {
		return ErrInvalidRateLimit
	}
	if p.WindowHours != nil && *p.WindowHours <= 0 {
		return ErrInvalidWindow
	}
	if p.SummaryMaxChars < 1 {
		return ErrInvalidSummaryLimit
	}
	if p.RequestTimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}
	for _, h := range p.AllowedHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: %d", ErrInvalidAllowedHour, h)
		}
	}
	if len(p.Sections) == 0 {
		return ErrNoSections
	}
	for _, s := range p.Sections {
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("sections.%s: %w", s.Key, ErrSectionMissingURL)
		}
		if s.MaxItems < 1 {
			return fmt.Errorf("sections.%s: %w", s.Key, ErrInvalidMaxItems)
		}
		if s.WindowHours != nil && *s.WindowHours <= 0 {
			return fmt.Errorf("sections.%s: %w", s.Key, ErrInvalidWindow)
		}
	}
	return nil
}

// Location 返回配置时区；未校验时回落到 UTC
func (p *Pipeline) Location() *time.Location {
	if p.location == nil {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			p.location = loc
		} else {
			return time.UTC
		}
	}
	return p.location
}

// RateLimit 两次请求之间的最小间隔
func (p *Pipeline) RateLimit() time.Duration {
	if p.RateLimitSeconds == nil {
		return time.Duration(defaultRateLimit * float64(time.Second))
	}
	return time.Duration(*p.RateLimitSeconds * float64(time.Second))
}

// RequestTimeout 单次抓取的超时时间
func (p *Pipeline) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds * float64(time.Second))
}

// Window 返回分区的有效时间窗：分区覆盖优先，否则用全局 window_hours
func (p *Pipeline) Window(s Section) time.Duration {
	hours := defaultWindowHours
	if p.WindowHours != nil {
		hours = *p.WindowHours
	}
	if s.WindowHours != nil {
		hours = *s.WindowHours
	}
	return time.Duration(hours * float64(time.Hour))
}

// SectionKeys 按配置顺序返回分区 key
func (p *Pipeline) SectionKeys() []string {
	keys := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		keys = append(keys, s.Key)
	}
	return keys
}
