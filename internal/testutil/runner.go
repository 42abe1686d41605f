package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
)

// RasterCall records one pdftoppm invocation.
type RasterCall struct {
	Page int
	DPI  int
}

// FakePdftoppm stands in for poppler's pdftoppm in -singlefile mode: it
// writes whatever Render returns to <prefix>.png.
type FakePdftoppm struct {
	Render func(page, dpi int) ([]byte, error)

	mu    sync.Mutex
	Calls []RasterCall
}

func (f *FakePdftoppm) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	var page, dpi int
	var prefix string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			page, _ = strconv.Atoi(args[i+1])
			i++
		case "-l":
			i++
		case "-r":
			dpi, _ = strconv.Atoi(args[i+1])
			i++
		default:
			prefix = args[i] // last positional wins
		}
	}

	f.mu.Lock()
	f.Calls = append(f.Calls, RasterCall{Page: page, DPI: dpi})
	f.mu.Unlock()

	data, err := f.Render(page, dpi)
	if err != nil {
		return nil, []byte(err.Error()), fmt.Errorf("exit status 1")
	}
	if err := os.WriteFile(prefix+".png", data, 0o600); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

// CallCount is safe for concurrent use.
func (f *FakePdftoppm) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
