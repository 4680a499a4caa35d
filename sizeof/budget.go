package sizeof

// Budget is a byte limit and the usage charged against it.
//
// A Budget is mutated only by the partition that owns it; other readers get
// a copy (see the cache package's Snapshot).
type Budget struct {
	// Limit is the soft cap in bytes.
	Limit uint64

	// Used is the total currently charged.
	Used uint64
}

// NewBudget returns an empty budget with the given limit.
func NewBudget(limit uint64) Budget {
	return Budget{Limit: limit}
}

// Charge adds n bytes of usage.
func (b *Budget) Charge(n uint64) {
	b.Used += n
}

// Refund removes n bytes of usage, clamping at zero.
func (b *Budget) Refund(n uint64) {
	if n > b.Used {
		b.Used = 0
		return
	}
	b.Used -= n
}

// Over reports whether usage exceeds the limit.
func (b Budget) Over() bool {
	return b.Used > b.Limit
}

// Remaining returns the bytes left before the limit is reached.
func (b Budget) Remaining() uint64 {
	if b.Used >= b.Limit {
		return 0
	}
	return b.Limit - b.Used
}

// Ratio returns Used/Limit. A zero limit with any usage reports 1.
func (b Budget) Ratio() float64 {
	if b.Limit == 0 {
		if b.Used == 0 {
			return 0
		}
		return 1
	}
	return float64(b.Used) / float64(b.Limit)
}
