package push

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrPublishFailed = errors.New("publish failed")

// GroupError is the failure of one group within a broadcast.
type GroupError struct {
	GroupID string
	Err     error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %s: %v", e.GroupID, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }

// GroupErrors aggregates the groups that failed in one PushToGroups call.
type GroupErrors struct {
	Attempted int
	Failures  []*GroupError
}

func (e *GroupErrors) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("push failed for %d of %d groups: %s", len(e.Failures), e.Attempted, strings.Join(parts, "; "))
}

func (e *GroupErrors) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

// GroupIDs lists the failed groups in sorted order.
func (e *GroupErrors) GroupIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.GroupID)
	}
	sort.Strings(ids)
	return ids
}
