// Package logx configures greetd's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Levels and sinks swappable at runtime (Service.Apply)
//
// Lifecycle events go through logx; greeting delivery never does. The
// two streams stay separate so piping stdout or tailing the log file
// each yields one kind of output.
package logx
