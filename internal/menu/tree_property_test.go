// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genFlat produces flat lists as the editor would: each indent is at most
// one deeper than the previous item.
func genFlat() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 3)).Map(func(steps []int) []FlatItem {
		flat := make([]FlatItem, 0, len(steps))
		prev := -1
		for i, step := range steps {
			indent := step
			if indent > prev+1 {
				indent = prev + 1
			}
			flat = append(flat, FlatItem{
				Label:  "item",
				URL:    "/" + string(rune('a'+i%26)),
				Indent: indent,
			})
			prev = indent
		}
		return flat
	})
}

func TestTreeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("nest then flatten preserves editor lists", prop.ForAll(
		func(flat []FlatItem) bool {
			got := Flatten(Nest(flat))
			if len(flat) == 0 {
				return len(got) == 0
			}
			return reflect.DeepEqual(flat, got)
		},
		genFlat(),
	))

	properties.Property("flatten then nest is identity on nested trees", prop.ForAll(
		func(flat []FlatItem) bool {
			tree := Nest(flat)
			return reflect.DeepEqual(tree, Nest(Flatten(tree)))
		},
		genFlat(),
	))

	properties.Property("nest never drops items", prop.ForAll(
		func(indents []int) bool {
			flat := make([]FlatItem, len(indents))
			for i, in := range indents {
				flat[i] = FlatItem{Label: "x", URL: "/x", Indent: in}
			}
			return len(Flatten(Nest(flat))) == len(flat)
		},
		gen.SliceOf(gen.IntRange(0, 10)),
	))

	properties.TestingRun(t)
}
