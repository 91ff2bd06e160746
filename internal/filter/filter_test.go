package filter

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verte-zerg/namedraw/internal/model"
)

func TestClassify(t *testing.T) {
	cfg := model.FilterConfig{
		HardReject:    []model.Signature{{3, 3}},
		ProbReject:    []model.Signature{{2, 4}, {3, 3}},
		RejectPercent: 50,
	}
	tests := []struct {
		name string
		sig  model.Signature
		ok   bool
		want Verdict
	}{
		{name: "hard match wins over prob", sig: model.Signature{3, 3}, ok: true, want: HardReject},
		{name: "order sensitive", sig: model.Signature{3, 4}, ok: true, want: Accept},
		{name: "prob match", sig: model.Signature{2, 4}, ok: true, want: ProbabilisticReject},
		{name: "reversed prob does not match", sig: model.Signature{4, 2}, ok: true, want: Accept},
		{name: "absent signature", sig: model.Signature{3, 3}, ok: false, want: Accept},
		{name: "empty signature", sig: nil, ok: true, want: Accept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sig, tt.ok, cfg))
		})
	}
}

func TestRejectsPercentBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	always := model.FilterConfig{RejectPercent: 100}
	never := model.FilterConfig{RejectPercent: 0}
	for i := 0; i < 10000; i++ {
		roll := rnd.Intn(100) + 1
		assert.True(t, Rejects(ProbabilisticReject, always, roll))
		assert.False(t, Rejects(ProbabilisticReject, never, roll))
		assert.False(t, Rejects(Accept, always, roll))
		assert.True(t, Rejects(HardReject, never, roll))
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(model.DefaultFilterConfig()))
	err := Validate(model.FilterConfig{RejectPercent: 101})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	err = Validate(model.FilterConfig{HardReject: []model.Signature{{}}})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
