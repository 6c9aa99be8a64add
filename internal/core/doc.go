// Package core holds the efile service logic shared by the HTTP server and
// the command-line tool. It has no transport dependencies.
//
// # Documents
//
// [Service.Parse] turns one uploaded efile into a [Document]: the parsed
// tables in file order plus every anomaly the parser reported. Documents are
// cached in memory, bounded by [Options.MaxCached] with the oldest evicted
// first, and can be persisted through a [Store].
//
// # Concurrency
//
// Parses are bounded by a [ParseLimiter]. A request that cannot get a slot
// within [Options.MaxWait] fails with [ErrTooManyParses]. The document cache
// is guarded by a read-write mutex; documents themselves are immutable.
//
// # Export
//
// [Export] writes a whole document or a single table as efile, JSON or YAML,
// and a single table as CSV.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code prefix for support reference:
//
//   - CFG: format file problems
//   - FILE: upload size, encoding and read failures
//   - PAR: structural parse failures
//   - DOC, TBL: unknown documents and tables
//   - EXP: export failures
//   - UPL: busy, cancelled or timed out requests
//   - DB: document store failures
package core
