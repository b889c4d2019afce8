package sup

// Package sup implements the PID-1 supervision core: it launches the
// configured services, streams their output into structured logs, forwards
// host signals into the process namespace, reaps orphaned descendants and
// escalates a namespace-wide shutdown when an essential service exits.
//
// Overview
//
// The Supervisor owns one Runner per service. Each Runner spawns its
// process with stdout/stderr redirected into pipes and then runs three
// concurrent activities: two stream loggers and one waiter.
//
//	Supervisor              Runner{service}            child process
//	    |                       |                           |
//	install forwarding -------->|                           |
//	    | one goroutine per --->| Start + "service started" |
//	    |   service             | logLines(stdout) <--------| pipe
//	    |                       | logLines(stderr) <--------| pipe
//	    | go Reaper.Run()       | Wait() -------------------| exit
//	    |                       | essential? -> Escalator   |
//	    |<----- all done -------|                           |
//
// Because this process is PID 1 it must also claim the exit status of
// descendants it never launched; the Reaper waits on "any child" in a
// dedicated goroutine. The Reaper's broad wait and a Runner's direct wait
// race for the same exit notification: whichever asks first gets the
// status, the loser gets ECHILD. Both sides treat ECHILD as the expected
// outcome of losing that race, never as a failure.
//
// Invariants:
//   - Forwarding handlers are installed before any child exists; an
//     installation failure aborts the run.
//   - A launch failure is confined to its service; siblings still run.
//   - Stream loggers run to end-of-input, so trailing output is flushed
//     even after the process has exited.
//   - The shutdown escalation cursor over TERM, INT, KILL only moves
//     forward for the life of the process.
