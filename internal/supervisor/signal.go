package supervisor

import "syscall"

// exitSignal is the graceful-termination signal sent before escalating
// to an unconditional kill.
var exitSignal = syscall.SIGTERM
