package health

import (
	"context"
	"testing"
)

func TestNewMemoryChecker_Defaults(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{})
	if m.config.WarningRatio != 2 || m.config.CriticalRatio != 4 {
		t.Errorf("defaults = %+v, want warning 2 critical 4", m.config)
	}

	m = NewMemoryChecker(MemoryCheckerConfig{WarningRatio: 3, CriticalRatio: 2})
	if m.config.CriticalRatio != 6 {
		t.Errorf("CriticalRatio = %v, want 6", m.config.CriticalRatio)
	}
	if m.Name() != "memory" {
		t.Errorf("Name() = %q, want memory", m.Name())
	}
}

func TestMemoryChecker_Ratios(t *testing.T) {
	tests := []struct {
		name   string
		heap   uint64
		budget uint64
		want   Status
	}{
		{"no budget", 1 << 30, 0, StatusHealthy},
		{"below warning", 150, 100, StatusHealthy},
		{"warning", 250, 100, StatusDegraded},
		{"critical", 400, 100, StatusUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMemoryChecker(MemoryCheckerConfig{
				Budget: func() uint64 { return tc.budget },
			})
			m.heap = func() uint64 { return tc.heap }

			r := m.Check(context.Background())
			if r.Status != tc.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tc.want, r.Message)
			}
			if r.Details["heap_alloc"] != tc.heap {
				t.Errorf("heap_alloc = %v, want %d", r.Details["heap_alloc"], tc.heap)
			}
		})
	}
}

func TestMemoryChecker_LiveHeap(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{
		Budget: func() uint64 { return 1 << 40 },
	})
	if r := m.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy with a huge budget", r.Status)
	}
}
