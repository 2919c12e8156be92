package extractpipe

import (
	"fmt"
	"os"
	"sync"

	"github.com/arclane/archivekit"
)

// conflictAction is the outcome of resolving one path collision.
type conflictAction int

const (
	actionProceed conflictAction = iota
	actionSkip
)

// conflictLatch remembers an Interactive All/None response for the
// remainder of an extraction (spec §4.6: "responses include All/None
// which latch the decision"). Safe for concurrent use since file
// writes happen on a worker pool.
type conflictLatch struct {
	mu      sync.Mutex
	decided bool
	action  conflictAction
}

func (l *conflictLatch) get() (conflictAction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.action, l.decided
}

func (l *conflictLatch) set(a conflictAction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decided = true
	l.action = a
}

// resolveConflict implements spec §4.6's ResolveConflict state:
// decide whether target may be written to, and under what final path
// (Rename may change it).
func resolveConflict(target string, policy archivekit.ExtractionPolicy, latch *conflictLatch) (conflictAction, string, error) {
	_, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return actionProceed, target, nil
	}
	if err != nil {
		return actionSkip, target, err
	}

	if a, ok := latch.get(); ok {
		return a, target, nil
	}

	switch policy.OnConflict {
	case archivekit.ConflictOverwrite:
		return actionProceed, target, nil

	case archivekit.ConflictSkip:
		return actionSkip, target, nil

	case archivekit.ConflictRename:
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s.%d", target, i)
			if _, err := os.Lstat(candidate); os.IsNotExist(err) {
				return actionProceed, candidate, nil
			}
		}

	case archivekit.ConflictInteractive:
		if policy.Prompt == nil {
			return actionSkip, target, fmt.Errorf("%w: interactive conflict policy set without a prompt collaborator", archivekit.ErrUnsupported)
		}
		resp, err := policy.Prompt.Resolve(target)
		if err != nil {
			return actionSkip, target, err
		}
		switch resp {
		case archivekit.ResponseYes:
			return actionProceed, target, nil
		case archivekit.ResponseNo:
			return actionSkip, target, nil
		case archivekit.ResponseAll:
			latch.set(actionProceed)
			return actionProceed, target, nil
		case archivekit.ResponseNone:
			latch.set(actionSkip)
			return actionSkip, target, nil
		default:
			return actionSkip, target, nil
		}

	default:
		return actionSkip, target, nil
	}
}
