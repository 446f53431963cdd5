package ledger

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/reforge/internal/ir"
)

// Waypoint commits to the state root of a version. Text form is
// "<version>:<64 hex digits>". Equality is structural.
type Waypoint struct {
	Version uint64
	Root    ir.Digest
}

// ParseWaypoint parses the text form.
func ParseWaypoint(s string) (Waypoint, error) {
	v, root, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Waypoint{}, fmt.Errorf("invalid waypoint %q: want <version>:<root>", s)
	}
	version, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("invalid waypoint version %q: %w", v, err)
	}
	raw, err := hex.DecodeString(root)
	if err != nil || len(raw) != len(ir.Digest{}) {
		return Waypoint{}, fmt.Errorf("invalid waypoint root %q", root)
	}
	w := Waypoint{Version: version}
	copy(w.Root[:], raw)
	return w, nil
}

func (w Waypoint) String() string {
	return fmt.Sprintf("%d:%s", w.Version, w.Root)
}

// Equal reports structural equality.
func (w Waypoint) Equal(o Waypoint) bool {
	return w == o
}

// MarshalText implements encoding.TextMarshaler.
func (w Waypoint) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Waypoint) UnmarshalText(text []byte) error {
	parsed, err := ParseWaypoint(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
