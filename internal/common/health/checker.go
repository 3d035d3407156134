package health

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

type Checker interface {
	Check() error
}

// StartupCompleteChecker reports unhealthy until MarkComplete is called,
// so load balancers do not route traffic to an instance that is still
// initialising.
type StartupCompleteChecker struct {
	complete atomic.Bool
}

func NewStartupCompleteChecker() *StartupCompleteChecker {
	return &StartupCompleteChecker{}
}

func (c *StartupCompleteChecker) Check() error {
	if !c.complete.Load() {
		return errors.New("startup not complete")
	}
	return nil
}

func (c *StartupCompleteChecker) MarkComplete() {
	c.complete.Store(true)
}
