package cpf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidKnownNumbers(t *testing.T) {
	for _, in := range []string{"529.982.247-25", "52998224725", " 529 982 247 25 ", "111.444.777-35"} {
		assert.True(t, Valid(in), in)
	}
}

func TestRepeatedDigitsAreInvalid(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		in := strings.Repeat(string(d), Length)
		assert.False(t, Valid(in), in)
	}
}

func TestAlteredCheckDigitIsInvalid(t *testing.T) {
	assert.False(t, Valid("529.982.247-26"))
	assert.False(t, Valid("529.982.247-15"))
}

func TestWrongLengthIsInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "5299822472", "529982247250", "529.982.247-2x"} {
		assert.False(t, Valid(in), in)
	}
}

func TestFormatAndClean(t *testing.T) {
	assert.Equal(t, "529.982.247-25", Format("52998224725"))
	assert.Equal(t, "529.982.247-25", Format("529.982.247-25"))
	assert.Equal(t, "1234", Format("12-34"))
	assert.Equal(t, "52998224725", Clean("529.982.247-25"))
}
