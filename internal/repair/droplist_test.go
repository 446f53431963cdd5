package repair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/legacy"
)

func TestParseDropList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"json array", `["0xAA", "6BBF853AA6521DB445E5CBDF3C85E8A0"]`, 2},
		{"yaml sequence", "- \"0xAA\"\n- \"0xBB\"\n", 2},
		{"empty list", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addrs, err := ParseDropList([]byte(tt.input))
			require.NoError(t, err)
			assert.Len(t, addrs, tt.want)
		})
	}
}

func TestParseDropList_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":     "   ",
		"object":    `{"account": "0xAA"}`,
		"bad hex":   `["0xZZ"]`,
		"truncated": `["0xAA"`,
		"null":      "null",
		"tilde":     "~\n",
		"comment":   "# nothing to drop\n",
		"scalar":    `"0xAA"`,
		"null item": "- 0xAA\n- ~\n",
		"nested":    `[["0xAA"]]`,
		"two docs":  "- 0xAA\n---\n- 0xBB\n",
	} {
		t.Run(name, func(t *testing.T) {
			addrs, err := ParseDropList([]byte(input))
			assert.Error(t, err)
			assert.Nil(t, addrs)
		})
	}
}

func TestLoadDropList_NullDocumentIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("~\n"), 0o644))

	addrs, err := LoadDropList(path)
	var dle *DropListError
	require.ErrorAs(t, err, &dle)
	assert.Equal(t, path, dle.Path)
	assert.Contains(t, err.Error(), "want a list of addresses, got null")
	assert.Nil(t, addrs)
}

func TestLoadDropList_Unreadable(t *testing.T) {
	_, err := LoadDropList(filepath.Join(t.TempDir(), "missing.json"))
	var dle *DropListError
	require.ErrorAs(t, err, &dle)

	_, err = LoadDropList(t.TempDir())
	require.ErrorAs(t, err, &dle)
}

func TestParseDropList_Addresses(t *testing.T) {
	addrs, err := ParseDropList([]byte(`["0xaa"]`))
	require.NoError(t, err)
	assert.Equal(t, legacy.MustParseAddress("0xAA"), addrs[0])
}
