package fixup

import (
	"github.com/sirupsen/logrus"

	"github.com/p4lang/p4c-bm2json/internal/emitctl"
)

// Logger is the logging handle threaded through the fixup passes; nil
// is accepted and treated as "no logging" by Bug.
type Logger = *logrus.Logger

// Bug reports an internal bug: these passes are total by contract
// (§4.1's "Failures: none"), so an unknown-width type reaching here
// means the front end produced ill-typed input.
func Bug(log Logger, format string, args ...any) {
	emitctl.Bug(log, format, args...)
}
