package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Path scanner
//
// Grammar:
//
//	path    ::= member segment*
//	segment ::= '.' member | '[' index ']' | '.' '(' typename ')'
// ---------------------------------------------------------------------------

const (
	pathDelimiter    = '.'
	pathIndexerOpen  = '['
	pathIndexerClose = ']'
	pathCastOpen     = '('
	pathCastClose    = ')'
)

type segmentKind uint8

const (
	segMember segmentKind = iota
	segIndexer
	segCast
)

func (k segmentKind) String() string {
	switch k {
	case segIndexer:
		return "indexer"
	case segCast:
		return "cast"
	}
	return "member"
}

// segment is one scanned path segment. start and end delimit the whole
// segment including its delimiters; text is the member name, the indexer
// text or the cast type name.
type segment struct {
	kind  segmentKind
	start int
	end   int
	text  string
}

// scanSegment scans the segment of path beginning at start.
func scanSegment(path string, start int) (segment, error) {
	if path[start] == pathIndexerOpen {
		closeAt := strings.IndexByte(path[start+1:], pathIndexerClose)
		if closeAt < 0 {
			return segment{}, pathErrorf(path, start, ErrUnterminatedIndexer, "in %q", path[start:])
		}
		closeAt += start + 1
		return segment{kind: segIndexer, start: start, end: closeAt + 1, text: path[start+1 : closeAt]}, nil
	}

	nameStart := start
	if path[nameStart] == pathDelimiter {
		nameStart++
	}

	if nameStart < len(path) && path[nameStart] == pathCastOpen {
		closeAt := strings.IndexByte(path[nameStart+1:], pathCastClose)
		if closeAt < 0 {
			return segment{}, pathErrorf(path, start, ErrUnterminatedCast, "in %q", path[start:])
		}
		closeAt += nameStart + 1
		return segment{kind: segCast, start: start, end: closeAt + 1, text: path[nameStart+1 : closeAt]}, nil
	}

	end := len(path)
	if i := strings.IndexAny(path[start+1:], ".["); i >= 0 {
		end = start + 1 + i
	}
	if nameStart >= end {
		return segment{}, pathErrorf(path, start, ErrEmptyMember, "after %q", path[:start])
	}
	return segment{kind: segMember, start: start, end: end, text: path[nameStart:end]}, nil
}

// sharesFrame reports whether path continues past the frame spanning
// [start, end) of prev with the same text. The frame is only reusable when
// the new path goes deeper than it.
func sharesFrame(path, prev string, start, end int) bool {
	if len(path) <= end {
		return false
	}
	if c := path[end]; c != pathDelimiter && c != pathIndexerOpen {
		return false
	}
	return path[start:end] == prev[start:end]
}
