package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hindi", "hi"},
		{" tamil ", "ta"},
		{"Telugu (Hyderabad dialect)", "te"},
		{"ta", "ta"},
		{"MAI", "mai"},
		{"Maithili", "mai"},
		{"Oriya", "or"},
		{"", "hi"},
		{"klingon", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.in))
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Tamil", Name("ta", "x"))
	assert.Equal(t, "Hindi", Name("HI", "x"))
	assert.Equal(t, "the user's language", Name("zz", "the user's language"))
}

func TestIsDevanagari(t *testing.T) {
	for _, c := range []string{"hi", "mr", "ne", "bh", "mai", "raj", "ks", "sd"} {
		assert.True(t, IsDevanagari(c), c)
	}
	for _, c := range []string{"ta", "te", "kn", "ml", "bn", "gu", "pa", "or", "as", "en", ""} {
		assert.False(t, IsDevanagari(c), c)
	}
}
