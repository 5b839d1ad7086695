package live

import (
	"fmt"
	"strings"
)

// PersistenceFailure reports a rejected create/update/delete after its optimistic
// application was rolled back.
type PersistenceFailure struct {
	Op  string
	IDs []string
	Err error
}

func (e PersistenceFailure) Error() string {
	return fmt.Sprintf("%s %s failed, reverted: %v", e.Op, strings.Join(e.IDs, ","), e.Err)
}

func (e PersistenceFailure) Unwrap() error { return e.Err }
