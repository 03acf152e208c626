package service

import (
	"sync"

	"student_records/internal/model"
	"student_records/pkg/monitoring"
)

// PromotionHolder gives one caller at a time access to the served
// promotion.
type PromotionHolder struct {
	mu sync.Mutex
	p  *model.Promotion
}

func NewPromotionHolder(p *model.Promotion) *PromotionHolder {
	h := &PromotionHolder{}
	h.Swap(p)
	return h
}

// With runs fn while holding the promotion.
func (h *PromotionHolder) With(fn func(p *model.Promotion) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.p)
}

// Swap replaces the promotion, typically after a reload.
func (h *PromotionHolder) Swap(p *model.Promotion) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.p = p
	monitoring.PromotionStudents.Set(float64(p.Registry.Len()))
}
