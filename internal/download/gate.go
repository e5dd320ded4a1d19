package download

import "sync"

// CaptchaGate remembers whether a person has solved a CAPTCHA during the
// current run. A new gate starts unresolved.
type CaptchaGate struct {
	mu       sync.Mutex
	resolved bool
}

// NewCaptchaGate returns an unresolved gate.
func NewCaptchaGate() *CaptchaGate {
	return &CaptchaGate{}
}

// Resolved reports whether a CAPTCHA was already solved in this run.
func (g *CaptchaGate) Resolved() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved
}

// MarkResolved records that a CAPTCHA was solved.
func (g *CaptchaGate) MarkResolved() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolved = true
}
