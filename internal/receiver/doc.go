// Package receiver supplies the candidate receiver pool and the client
// capability used to probe and capture from remote software-defined radios.
// The wire protocol itself lives behind an external recorder binary; this
// package owns the process boundary and output parsing.
package receiver
