package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	base := sequence{10, 20, 30, 40}

	tests := []struct {
		name string
		got  sequence
		want sequence
	}{
		{"insert front", base.insert(0, 5), sequence{5, 10, 20, 30, 40}},
		{"insert end", base.insert(4, 50), sequence{10, 20, 30, 40, 50}},
		{"remove middle", base.removeAt(1), sequence{10, 30, 40}},
		{"move forward", base.move(0, 2), sequence{20, 30, 10, 40}},
		{"move back", base.move(3, 0), sequence{40, 10, 20, 30}},
		{"move to last", base.move(1, 3), sequence{10, 30, 40, 20}},
		{"move in place", base.move(2, 2), sequence{10, 20, 30, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, sequence{10, 20, 30, 40}, base, "receiver is never modified")
}

func TestSequence_Positions(t *testing.T) {
	pos := sequence{7, 3, 9}.positions()
	assert.Equal(t, map[int64]int{7: 0, 3: 1, 9: 2}, pos)
}
