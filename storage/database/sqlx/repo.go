package sqlxrepos

import (
	"github.com/trezcool/engagement/core"
)

type repo struct {
	exec core.DBExecutor
}

// getExec returns the executor passed by a service (usually a transaction), or the repository's own.
func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}
