package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/vault"
)

// Unlock prompts for the passphrase and opens the vault in the configured
// data directory. A wrong passphrase is reported without retrying; the user
// can run the command again.
func (a *App) Unlock(ctx context.Context) error {
	if a.vault != nil {
		log.Println("Vault is already unlocked")
		return nil
	}

	passphrase, err := GetPassphrase(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(passphrase)

	v, err := vault.Open(ctx, a.config, a.log, passphrase)
	if err != nil {
		if errors.Is(err, common.ErrInvalidPassphrase) {
			log.Println("Invalid passphrase")
		} else {
			log.Printf("Unlock unsuccessfull: %s", err.Error())
		}
		return err
	}

	a.vault = v
	log.Printf("Vault unlocked (instance %s)", v.InstanceID)
	return nil
}

// Lock closes the vault handle and wipes the key material.
func (a *App) Lock(ctx context.Context) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	if err := a.vault.Close(); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	a.vault = nil
	log.Println("Vault locked")
	return nil
}
