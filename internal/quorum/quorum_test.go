package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type child struct {
	enabled  bool
	required bool
	pass     bool
}

func (c child) IsEnabled() bool  { return c.enabled }
func (c child) IsRequired() bool { return c.required }

func passes(c child) bool { return c.pass }

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		minPass  int
		optional int
		want     int
	}{
		{name: "in range", minPass: 1, optional: 3, want: 1},
		{name: "over", minPass: 5, optional: 2, want: 2},
		{name: "negative", minPass: -1, optional: 2, want: 0},
		{name: "no optional", minPass: 4, optional: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.minPass, tt.optional))
			// Clamping an already clamped value is a no-op.
			assert.Equal(t, tt.want, Clamp(Clamp(tt.minPass, tt.optional), tt.optional))
		})
	}
}

func TestPassesRequiredAndOptional(t *testing.T) {
	tests := []struct {
		name     string
		children []child
		minPass  int
		want     bool
	}{
		{
			name:     "all required pass, no optional",
			children: []child{{enabled: true, required: true, pass: true}, {enabled: true, required: true, pass: true}},
			want:     true,
		},
		{
			name:     "one required fails",
			children: []child{{enabled: true, required: true, pass: true}, {enabled: true, required: true, pass: false}},
			want:     false,
		},
		{
			name:     "optional quorum met",
			children: []child{{enabled: true, pass: true}, {enabled: true, pass: false}, {enabled: true, pass: true}},
			minPass:  2,
			want:     true,
		},
		{
			name:     "optional quorum missed",
			children: []child{{enabled: true, pass: true}, {enabled: true, pass: false}, {enabled: true, pass: false}},
			minPass:  2,
			want:     false,
		},
		{
			name:     "minPass over optional count is clamped",
			children: []child{{enabled: true, pass: true}, {enabled: true, pass: true}},
			minPass:  5,
			want:     true,
		},
		{
			name:     "zero minPass ignores optional failures",
			children: []child{{enabled: true, required: true, pass: true}, {enabled: true, pass: false}},
			minPass:  0,
			want:     true,
		},
		{
			name:     "no live children never passes",
			children: []child{{enabled: false, required: true, pass: true}},
			want:     false,
		},
		{
			name:     "empty never passes",
			children: nil,
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Passes(tt.children, tt.minPass, passes))
		})
	}
}

func TestDisabledRequiredChildIsAbsentNotFailing(t *testing.T) {
	children := []child{
		{enabled: false, required: true, pass: false},
		{enabled: true, required: true, pass: true},
	}
	assert.True(t, Passes(children, 0, passes), "a disabled required child must not force a failure")

	required, optional := Partition(Live(children))
	assert.Len(t, required, 1)
	assert.Empty(t, optional)
}

func TestQuorumMonotonicity(t *testing.T) {
	children := []child{
		{enabled: true, pass: true},
		{enabled: false, pass: true},
		{enabled: true, pass: false},
	}
	before := Count(children, passes)

	children[1].enabled = true
	after := Count(children, passes)

	assert.GreaterOrEqual(t, after, before)
	assert.True(t, Passes(children, 2, passes))
}

func TestThresholdCountsLiveOptionalOnly(t *testing.T) {
	children := []child{
		{enabled: true},
		{enabled: true},
		{enabled: false},
		{enabled: true, required: true},
	}
	assert.Equal(t, 2, Threshold(children, 5))
	assert.Equal(t, 1, Threshold(children, 1))
}
