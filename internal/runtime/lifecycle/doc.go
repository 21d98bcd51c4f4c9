// Package lifecycle coordinates process shutdown.
//
// A Coordinator runs the workload, races it against the first shutdown
// trigger (signal, fatal error, or normal completion), grants a grace
// period before abandoning a stuck workload, and always runs the
// bounded cleanup sequence. The transition running -> shutting down ->
// terminated happens exactly once no matter how many triggers fire,
// and the final exit code only ever escalates to worse outcomes. A
// signal decides the code only when the workload unwinds as cancelled;
// a workload that still completes keeps its own result.
package lifecycle
