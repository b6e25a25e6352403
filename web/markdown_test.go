package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "headings and lists",
			src:      "## Key Findings\n\n- first\n- second\n",
			contains: []string{"<h2>Key Findings</h2>", "<li>first</li>", "<ul>"},
		},
		{
			name:     "tables",
			src:      "| Source | Year |\n|---|---|\n| Nature | 2024 |\n",
			contains: []string{"<table>", "<td>Nature</td>"},
		},
		{
			name:     "raw html block omitted",
			src:      "# Report\n\n<script>alert('x')</script>\n",
			contains: []string{"<h1>Report</h1>", "raw HTML omitted"},
			excludes: []string{"<script>"},
		},
		{
			name:     "inline html omitted",
			src:      "see <img src=x onerror=alert(1)> here",
			excludes: []string{"<img"},
		},
		{
			name:     "dangerous links",
			src:      "[click](javascript:alert(1))",
			contains: []string{"click"},
			excludes: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := renderMarkdown(tt.src)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, string(out), c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, string(out), e)
			}
		})
	}
}
