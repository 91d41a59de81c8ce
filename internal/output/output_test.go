package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Units int    `json:"units" yaml:"units"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatYAML},
		{in: "YAML", want: FormatYAML},
		{in: "yml", want: FormatYAML},
		{in: "json", want: FormatJSON},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite(t *testing.T) {
	data := sample{Name: "Marina Heights", Units: 12}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, data))
	assert.Equal(t, "name: Marina Heights\nunits: 12\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, data))
	assert.JSONEq(t, `{"name":"Marina Heights","units":12}`, buf.String())

	assert.Error(t, Write(&buf, Format("toml"), data))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "result.json")

	require.NoError(t, WriteFile(path, FormatYAML, sample{Name: "x", Units: 1}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got sample
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "x", got.Name)

	assert.Equal(t, FormatYAML, FormatForPath("result.out", FormatYAML))
	assert.Equal(t, FormatJSON, FormatForPath("result.out", FormatJSON))
}
