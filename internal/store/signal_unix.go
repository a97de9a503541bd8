package store

import "syscall"

// syscallSig0 is the null signal used to probe whether a pid is still alive
// without disturbing it. The spec assumes a POSIX rename semantics
// throughout (§4.1); this package targets POSIX filesystems only.
var syscallSig0 = syscall.Signal(0)
