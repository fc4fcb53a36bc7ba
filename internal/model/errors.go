package model

import "errors"

var (
	// ErrNotFound 存储层查询不到记录
	ErrNotFound = errors.New("record not found")
	// ErrConflict 条件更新未命中：记录存在但当前状态不允许该变更
	ErrConflict = errors.New("state conflict")
	// ErrQuotaExhausted 当日额度已用完，本次写入未提交
	ErrQuotaExhausted = errors.New("quota exhausted")
)
