package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/namedraw/internal/model"
)

func TestPinyinSignature(t *testing.T) {
	p := NewPinyin()

	sig, ok := p.Signature("中国")
	require.True(t, ok)
	assert.Equal(t, model.Signature{1, 2}, sig)

	sig, ok = p.Signature("雅静")
	require.True(t, ok)
	assert.Equal(t, model.Signature{3, 4}, sig)
}

func TestPinyinUnavailable(t *testing.T) {
	p := NewPinyin()
	_, ok := p.Signature("ab")
	assert.False(t, ok)
	_, ok = p.Signature("中a")
	assert.False(t, ok)
	_, ok = p.Signature("")
	assert.False(t, ok)
}

func TestPinyinDisplay(t *testing.T) {
	assert.Equal(t, "zhōng guó", NewPinyin().Display("中国"))
}

func TestToneOf(t *testing.T) {
	assert.Equal(t, 3, toneOf("ya3"))
	assert.Equal(t, neutralTone, toneOf("de"))
	assert.Equal(t, neutralTone, toneOf(""))
}

func TestNopAndStatic(t *testing.T) {
	_, ok := Nop{}.Signature("中国")
	assert.False(t, ok)

	s := Static{"ab": {3, 3}}
	sig, ok := s.Signature("ab")
	require.True(t, ok)
	assert.Equal(t, model.Signature{3, 3}, sig)
	assert.Equal(t, "3,3", s.Display("ab"))
	_, ok = s.Signature("ba")
	assert.False(t, ok)
}
