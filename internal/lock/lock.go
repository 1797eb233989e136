// Package lock 提供排班表粒度的互斥锁
package lock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry 排班表锁注册表
//
// 同一排班表同一时刻只允许一个生成或优化操作。TryAcquire 不阻塞，
// 拿不到锁立即失败，由调用方转换为并发修改错误。
type Registry struct {
	locks map[uuid.UUID]*entry
	mu    sync.Mutex
}

type entry struct {
	holder     string
	acquiredAt time.Time
}

// NewRegistry 创建锁注册表
func NewRegistry() *Registry {
	return &Registry{
		locks: make(map[uuid.UUID]*entry),
	}
}

// TryAcquire 尝试获取排班表锁，holder 用于诊断日志
func (r *Registry) TryAcquire(scheduleID uuid.UUID, holder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.locks[scheduleID]; held {
		return false
	}
	r.locks[scheduleID] = &entry{holder: holder, acquiredAt: time.Now()}
	return true
}

// Release 释放排班表锁
func (r *Registry) Release(scheduleID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, scheduleID)
}

// Holder 返回当前持有者，未加锁时返回空串
func (r *Registry) Holder(scheduleID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, held := r.locks[scheduleID]
	if !held {
		return "", false
	}
	return e.holder, true
}

// HeldCount 当前持有的锁数量
func (r *Registry) HeldCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// ReleaseStale 释放持有超过 maxAge 的锁，返回释放数量
// 兜底清理，正常路径总是显式 Release
func (r *Registry) ReleaseStale(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	released := 0
	for id, e := range r.locks {
		if e.acquiredAt.Before(cutoff) {
			delete(r.locks, id)
			released++
		}
	}
	return released
}
