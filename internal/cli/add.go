package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tearleads/rapidvault/internal/upload"
)

// progressPrinter redraws an in-place percentage line, throttled to one
// redraw per interval. The final 100 tick is always drawn.
type progressPrinter struct {
	name     string
	interval time.Duration
	lastDraw time.Time
}

func (p *progressPrinter) Progress(percent int) {
	now := time.Now()
	if percent < 100 && now.Sub(p.lastDraw) < p.interval {
		return
	}
	p.lastDraw = now
	fmt.Printf("\r%s: %3d%%", p.name, percent)
	if percent >= 100 {
		fmt.Println()
	}
}

var _ upload.ProgressObserver = (*progressPrinter)(nil)

// Add reads a local file and uploads it into the vault, printing progress
// as it goes. Duplicate content is reported but not treated as an error.
func (a *App) Add(ctx context.Context, args []string) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	path := args[0]
	payload, err := os.ReadFile(path)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	name := filepath.Base(path)
	obs := &progressPrinter{name: name, interval: a.config.ProgressInterval}

	result, err := a.vault.Uploads.UploadFile(ctx, name, payload, obs)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if result.IsDuplicate {
		fmt.Printf("Stored %s as %s (content already present, deduplicated)\n", name, result.ID)
	} else {
		fmt.Printf("Stored %s as %s\n", name, result.ID)
	}
	if _, ok := result.Thumbnail.Path(); ok {
		fmt.Println("Thumbnail generated")
	}
	return nil
}
