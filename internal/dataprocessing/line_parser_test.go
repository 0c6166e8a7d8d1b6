package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "1,2024-01-07,Central",
			want: []string{"1", "2024-01-07", "Central"},
		},
		{
			name: "quoted field with comma",
			line: `1,"Central, North",9am`,
			want: []string{"1", "Central, North", "9am"},
		},
		{
			name: "doubled quote is literal",
			line: `"He said ""hi""",2`,
			want: []string{`He said "hi"`, "2"},
		},
		{
			name: "empty fields preserved",
			line: "a,,c,",
			want: []string{"a", "", "c", ""},
		},
		{
			name: "single field",
			line: "only",
			want: []string{"only"},
		},
		{
			name: "empty line yields one empty field",
			line: "",
			want: []string{""},
		},
		{
			name: "unterminated quote absorbed",
			line: `"abc,def`,
			want: []string{"abc,def"},
		},
		{
			name: "quote in the middle absorbed",
			line: `ab"cd,ef`,
			want: []string{"abcd,ef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line))
		})
	}
}
