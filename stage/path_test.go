package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePath_Validation tests path parsing rules
func TestParsePath_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"root", "/", false},
		{"single segment", "/World", false},
		{"nested", "/World/Robot/base_link", false},
		{"relative", "World/Robot", true},
		{"empty", "", true},
		{"trailing slash", "/World/", true},
		{"empty segment", "/World//Robot", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, p.String())
			}
		})
	}
}

// TestPath_Navigation tests name, parent, and child derivation
func TestPath_Navigation(t *testing.T) {
	p := Path("/World/Robot/base_link")

	assert.Equal(t, "base_link", p.Name())
	assert.Equal(t, Path("/World/Robot"), p.Parent())
	assert.Equal(t, Path("/World/Robot/base_link/visual"), p.AppendChild("visual"))
	assert.Equal(t, []string{"World", "Robot", "base_link"}, p.Segments())
	assert.Equal(t, 3, p.Depth())

	assert.Equal(t, Path("/World"), Path("/World").Parent().AppendChild("World"))
	assert.Equal(t, RootPath, Path("/World").Parent())
	assert.True(t, RootPath.IsRoot())
	assert.Equal(t, "", RootPath.Name())
	assert.Equal(t, 0, RootPath.Depth())
}

// TestPath_HasPrefix tests ancestor checks along prim boundaries
func TestPath_HasPrefix(t *testing.T) {
	p := Path("/World/Robot")

	assert.True(t, p.HasPrefix(RootPath))
	assert.True(t, p.HasPrefix(Path("/World")))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(Path("/Wo")))
	assert.False(t, p.HasPrefix(Path("/World/Robot/base_link")))
}
