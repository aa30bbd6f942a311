// Package rawcooked writes and reads reversibility data: the byte ranges of a
// source file that are not essence, stored as EB tagged elements so the file
// can be rebuilt bit for bit from its essence.
//
// A stream starts with an EBML header and a Segment. Each track then has a
// Track element holding the mask templates of its first frame, followed by
// one Block per unit. Attachments are stored as is.
package rawcooked
