// Package container walks RIFF and IFF style chunk containers over an
// in-memory buffer.
//
// A parser describes its container with a Format and its chunks with nested
// dispatch Tables; the Walker reads each chunk header, picks the handler from
// the table of the enclosing chunk and skips what the handler did not
// consume. Unknown chunks are skipped without being walked.
package container
