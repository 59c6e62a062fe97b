package grading

import "sync"

// Policy holds the scoring rules that vary between deployments rather than
// between questions.
type Policy struct {
	Name string `json:"name"`
	// ClampNegative floors a question's score at 0 instead of -negative_marks.
	ClampNegative bool `json:"clamp_negative"`
	// PartialCreditMMCQ scores MMCQ by (correct - incorrect selections) / correct options.
	PartialCreditMMCQ bool `json:"partial_credit_mmcq"`
}

var DefaultPolicy = Policy{Name: "default", ClampNegative: true}

var policies = struct {
	sync.RWMutex
	m map[string]Policy
}{m: map[string]Policy{}}

func init() {
	RegisterPolicy(DefaultPolicy)
	RegisterPolicy(Policy{Name: "negative", ClampNegative: false})
	RegisterPolicy(Policy{Name: "partial", ClampNegative: true, PartialCreditMMCQ: true})
}

// RegisterPolicy makes a policy available by name, replacing any previous
// policy with the same name.
func RegisterPolicy(p Policy) {
	if p.Name == "" {
		return
	}
	policies.Lock()
	defer policies.Unlock()
	policies.m[p.Name] = p
}

// LookupPolicy returns a registered policy.
func LookupPolicy(name string) (Policy, bool) {
	policies.RLock()
	defer policies.RUnlock()
	p, ok := policies.m[name]
	return p, ok
}
