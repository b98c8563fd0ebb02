package javadeps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		v1   string
		v2   string
		want int
	}{
		{"equal", "5.3.0", "5.3.0", 0},
		{"patch below", "5.4.23", "5.4.24", -1},
		{"major above", "6.0.0", "5.9.9", 1},
		{"shorter prefix is lower", "5.3", "5.3.0", -1},
		{"longer prefix is higher", "5.3.0.1", "5.3.0", 1},
		{"qualifier text ignored", "2.7.18-SNAPSHOT", "2.7.18", 0},
		{"double digit segments", "2.12.0", "2.9.0", 1},
		{"no digits compares lower", "unknown", "1.0", -1},
		{"both empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.v1, tt.v2))
		})
	}
}

func TestCompatibilityDB_Coverage(t *testing.T) {
	for _, target := range []string{"11", "17", "21"} {
		entry, ok := compatibilityDB[target]
		assert.True(t, ok, "missing entry for Java %s", target)
		assert.NotEmpty(t, entry.minVersions, "no minimum versions for Java %s", target)
	}

	// Only the 8 to 11 transition dropped JDK modules.
	assert.Len(t, compatibilityDB["11"].removedModules, 4)
	assert.Empty(t, compatibilityDB["17"].removedModules)
	assert.NotEmpty(t, compatibilityDB["17"].recommendedVersions)
	assert.NotEmpty(t, compatibilityDB["21"].recommendedVersions)
}
