package module_test

import (
	"testing"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/module/moduletest"
	"github.com/stretchr/testify/assert"
)

func TestAcceptsFile(t *testing.T) {
	tests := []struct {
		name       string
		extensions []string
		install    string
		file       string
		want       bool
	}{
		{
			name:       "empty extension accepts any file",
			extensions: []string{""},
			install:    "/opt/plugins",
			file:       "anything.bin",
			want:       true,
		},
		{
			name:       "empty extension accepts files without extension",
			extensions: []string{""},
			install:    "/opt/plugins",
			file:       "README",
			want:       true,
		},
		{
			name:       "no extensions disables install",
			extensions: []string{},
			install:    "/opt/plugins",
			file:       "effect.ny",
			want:       false,
		},
		{
			name:       "nil extensions disables install",
			extensions: nil,
			install:    "/opt/plugins",
			file:       "effect.ny",
			want:       false,
		},
		{
			name:       "no install path disables install",
			extensions: []string{""},
			install:    "",
			file:       "effect.ny",
			want:       false,
		},
		{
			name:       "matching extension",
			extensions: []string{"ny"},
			install:    "/opt/plugins",
			file:       "effect.ny",
			want:       true,
		},
		{
			name:       "matching extension with dot and case",
			extensions: []string{".YAML"},
			install:    "/opt/plugins",
			file:       "/tmp/reverb.yaml",
			want:       true,
		},
		{
			name:       "non matching extension",
			extensions: []string{"yaml", "yml"},
			install:    "/opt/plugins",
			file:       "plugin.so",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := moduletest.New("dnd")
			m.Extensions = tt.extensions
			m.Install = tt.install

			assert.Equal(t, tt.want, module.AcceptsFile(m, tt.file))
		})
	}
}

func TestSupportsInstall(t *testing.T) {
	m := moduletest.New("dnd")
	assert.False(t, module.SupportsInstall(m))

	m.Install = "/opt/plugins"
	assert.False(t, module.SupportsInstall(m))

	m.Extensions = []string{""}
	assert.True(t, module.SupportsInstall(m))

	assert.False(t, module.SupportsInstall(nil))
}

func TestMatchesExtension(t *testing.T) {
	assert.True(t, module.MatchesExtension([]string{"so"}, "lib.SO"))
	assert.False(t, module.MatchesExtension([]string{"so"}, "lib.dylib"))
	assert.False(t, module.MatchesExtension(nil, "lib.so"))
}
