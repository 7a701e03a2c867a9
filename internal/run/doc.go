// Package run persists broadcast-run state in SQLite and drives the whole
// pipeline for one occurrence: scan, record, detect, trim, publish. State
// survives crashes so a re-invoked run resumes instead of double-recording.
package run
