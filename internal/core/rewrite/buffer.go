// Package rewrite applies classified migration actions to a descriptor's
// source text. Edits are collected as (span, replacement) pairs and applied
// against the original byte buffer, so every byte outside a matched
// declaration survives the rewrite unchanged.
package rewrite

import (
	"fmt"
	"sort"
)

type edit struct {
	start, end int
	new        string
}

// A Buffer is a queue of edits to apply to an original byte slice. Edits may
// be queued in any order but must not overlap; overlap means two rules tried
// to rewrite the same bytes, which is a bug, not a formatting decision.
type Buffer struct {
	old   []byte
	edits []edit
}

func NewBuffer(old []byte) *Buffer {
	return &Buffer{old: old}
}

// Replace queues the replacement of old[start:end] with new.
func (b *Buffer) Replace(start, end int, new string) {
	if start < 0 || end < start || end > len(b.old) {
		panic(fmt.Sprintf("rewrite: invalid span [%d,%d) in %d-byte buffer", start, end, len(b.old)))
	}
	b.edits = append(b.edits, edit{start, end, new})
}

// Delete queues the removal of old[start:end].
func (b *Buffer) Delete(start, end int) { b.Replace(start, end, "") }

// Len returns the number of queued edits.
func (b *Buffer) Len() int { return len(b.edits) }

// Bytes applies the queued edits and returns the resulting text. It fails if
// any two edits overlap.
func (b *Buffer) Bytes() ([]byte, error) {
	edits := make([]edit, len(b.edits))
	copy(edits, b.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end < edits[j].end
	})

	var out []byte
	offset := 0
	for _, e := range edits {
		if e.start < offset {
			return nil, fmt.Errorf("rewrite: overlapping edits at byte %d", e.start)
		}
		out = append(out, b.old[offset:e.start]...)
		out = append(out, e.new...)
		offset = e.end
	}
	out = append(out, b.old[offset:]...)
	return out, nil
}
