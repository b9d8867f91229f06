package internal

import (
	"iter"
	"strconv"
)

// Concat joins define sequences. Later sequences do not override earlier
// ones; the first definition of a name wins.
func Concat(seqs ...iter.Seq2[string, string]) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		seen := map[string]bool{}
		for _, seq := range seqs {
			for name, value := range seq {
				if seen[name] {
					continue
				}
				seen[name] = true
				if !yield(name, value) {
					return
				}
			}
		}
	}
}

// Integers yields the defines whose values parse as integers, in any
// base Go accepts. Others are skipped.
func Integers(seq iter.Seq2[string, string]) iter.Seq2[string, uint64] {
	return func(yield func(string, uint64) bool) {
		for name, str := range seq {
			value, err := strconv.ParseUint(str, 0, 64)
			if err != nil {
				continue
			}
			if !yield(name, value) {
				return
			}
		}
	}
}
