// Package audit provides dispatch.Recorder implementations.
//
//   - DBRecorder persists each invocation's lifecycle (running, suspended,
//     resumed/failed, cancelled) to a Postgres invocation table for
//     monitoring: which requests are parked waiting for an external resume,
//     how long they have been suspended, and how they finished.
//   - MemoryRecorder collects the same events in memory for tests and demos.
//
// The with-db example ships the table migration and wires a DBRecorder into
// a dispatcher.
package audit
