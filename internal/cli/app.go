// Package cli implements the interactive shell over a local vault: unlock,
// upload, list, show, export, delete, stats. All state lives in the App;
// the loop itself is in repl.go.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/tearleads/rapidvault/internal/config"
	"github.com/tearleads/rapidvault/internal/logging"
	"github.com/tearleads/rapidvault/internal/vault"
)

type App struct {
	config *config.Config
	log    logging.Logger
	vault  *vault.Vault
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	return &App{config: cfg, log: log}
}

func (a *App) isUnlocked() bool {
	return a.vault != nil
}

func (a *App) getStatus() string {
	if a.vault == nil {
		return "locked"
	}
	return a.vault.InstanceID[:8]
}

// Run unlocks the vault interactively and then hands control to the REPL.
// The vault handle is closed on the way out.
func (a *App) Run(ctx context.Context) {
	fmt.Println("Welcome to rapidvault (type 'help' for commands)")

	_ = a.Unlock(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	if a.vault != nil {
		_ = a.vault.Close()
		a.vault = nil
	}
}
