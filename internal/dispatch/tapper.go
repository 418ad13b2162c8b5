package dispatch

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"

	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/utils"
)

// Tapper performs a single short press-and-release gesture at a screen
// point. It is an explicit dependency of the dispatcher so tests can
// substitute a fake.
type Tapper interface {
	Tap(ctx context.Context, p board.Point) error
}

// AdbTapper dispatches taps through `adb shell input tap`.
type AdbTapper struct {
	path   string
	serial string
}

// NewAdbTapper returns a tapper using the adb binary at path. serial selects
// a device when more than one is attached; empty means the default device.
func NewAdbTapper(path, serial string) *AdbTapper {
	if path == "" {
		path = "adb"
	}
	return &AdbTapper{path: path, serial: serial}
}

// Tap runs `adb [-s serial] shell input tap X Y`. A non-zero exit is a
// gesture refusal.
func (t *AdbTapper) Tap(ctx context.Context, p board.Point) error {
	var args []string
	if t.serial != "" {
		args = append(args, "-s", t.serial)
	}
	args = append(args, "shell", "input", "tap", strconv.Itoa(p.X), strconv.Itoa(p.Y))

	cmd := exec.CommandContext(ctx, t.path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return utils.Newf(utils.CodeGestureRefusal, "adb tap (%d,%d): %v: %s",
			p.X, p.Y, err, bytes.TrimSpace(out))
	}
	return nil
}
