package pointstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionRuns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		sel  []bool
		want []Run
	}{
		{"empty mask", nil, []Run{}},
		{"nothing selected", []bool{false, false, false}, []Run{}},
		{"everything selected", []bool{true, true, true}, []Run{{0, 3}}},
		{"single record", []bool{false, true, false}, []Run{{1, 2}}},
		{
			"two runs",
			[]bool{true, true, false, false, true, true, true},
			[]Run{{0, 2}, {4, 7}},
		},
		{
			"trailing run",
			[]bool{false, true, false, true, true},
			[]Run{{1, 2}, {3, 5}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SelectionRuns(tc.sel))
		})
	}
}

func TestSelectionRuns_CoverSelection(t *testing.T) {
	t.Parallel()

	sel := []bool{true, false, true, true, false, false, true}
	runs := SelectionRuns(sel)

	covered := make([]bool, len(sel))
	total := 0
	for _, r := range runs {
		for i := r.Start; i < r.End; i++ {
			covered[i] = true
			total++
		}
	}
	assert.Equal(t, sel, covered)
	assert.Equal(t, 4, total)
}

func TestRunOffsets(t *testing.T) {
	t.Parallel()

	off := RunOffsets([]Run{{0, 2}, {4, 7}})
	assert.Equal(t, []int{0, 2, 5}, off)

	assert.Equal(t, []int{0}, RunOffsets(nil))
}
