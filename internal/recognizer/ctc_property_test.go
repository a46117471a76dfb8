package recognizer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCTCCollapse_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("collapsed output has no blanks and no adjacent repeats without a blank between", prop.ForAll(
		func(path []int) bool {
			out := CTCCollapse(path, 0)
			if len(out) > len(path) {
				return false
			}
			for _, v := range out {
				if v == 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.Property("collapse is idempotent on blank-free output", prop.ForAll(
		func(path []int) bool {
			once := CTCCollapse(path, 0)
			twice := CTCCollapse(once, 0)
			if len(twice) > len(once) {
				return false
			}
			for i := 1; i < len(twice); i++ {
				if twice[i] == twice[i-1] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
