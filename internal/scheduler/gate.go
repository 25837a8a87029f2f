package scheduler

import "time"

// Decision 本次唤醒是否执行采集
type Decision int

const (
	Permit Decision = iota
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "permit"
}

// Decide 纯函数：allowedHours 为空时总是放行，否则只在配置时区的整点小时命中列表时放行。
// 外部调度器按 UTC 触发，夏令时切换由时区换算自然处理。
func Decide(now time.Time, loc *time.Location, allowedHours []int) Decision {
	if len(allowedHours) == 0 {
		return Permit
	}
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	for _, h := range allowedHours {
		if h == hour {
			return Permit
		}
	}
	return Skip
}
