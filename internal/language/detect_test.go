package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "What is a fever?", English},
		{"hindi", "बुखार क्या है?", Hindi},
		{"mixed scripts prefer hindi", "fever बुखार", Hindi},
		{"digits and punctuation", "1234 !?", Unknown},
		{"empty", "", Unknown},
		{"accented latin", "café au lait", English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestContainsDevanagari(t *testing.T) {
	assert.True(t, ContainsDevanagari("इलाज"))
	assert.True(t, ContainsDevanagari("some इलाज mixed"))
	assert.False(t, ContainsDevanagari("plain english"))
	assert.False(t, ContainsDevanagari(""))
}
