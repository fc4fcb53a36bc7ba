package service

import "time"

// Clock 时间来源，测试中替换为固定时钟
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

// Now 统一使用 UTC，保证数据库中的时间比较一致
func (SystemClock) Now() time.Time { return time.Now().UTC() }
