package vox

// Usage tracks token consumption for one assistant reply, as reported by
// the backend on stream completion.
//
// A zero Usage is reported when the stream ends without an explicit
// completion record.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// IsZero reports whether no tokens were accounted.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}
