package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tearleads/rapidvault/internal/common"
)

// Show prints a file's metadata and, for small text content, the content
// itself. Binary content is summarized by size only.
func (a *App) Show(ctx context.Context, args []string) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	rec, err := a.vault.Files.GetByID(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Printf("No file with id %s", args[0])
			return nil
		}
		log.Printf("error: %v", err)
		return err
	}

	handle, err := a.vault.OpenDisplay(ctx, rec)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer handle.Release()

	data, err := handle.Bytes()
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	fmt.Printf("Name: %s\nSize: %d bytes\nType: %s\nUploaded: %s\n",
		rec.Name, rec.Size, rec.MimeType, rec.UploadDate.Local().Format("2006-01-02 15:04:05"))

	if strings.HasPrefix(rec.MimeType, "text/") && len(data) <= 4096 {
		fmt.Println("---")
		fmt.Println(string(data))
	}
	return nil
}

// Export decrypts a file's content and writes it to a local destination
// path. The destination is created with owner-only permissions.
func (a *App) Export(ctx context.Context, args []string) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	rec, err := a.vault.Files.GetByID(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Printf("No file with id %s", args[0])
			return nil
		}
		log.Printf("error: %v", err)
		return err
	}

	data, err := a.vault.Retrieve(ctx, rec)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(data)

	dest := args[1]
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	fmt.Printf("Exported %s to %s\n", rec.Name, dest)
	return nil
}

// Remove soft-deletes a file's metadata record. The underlying blob stays
// in place because other records may reference the same content.
func (a *App) Remove(ctx context.Context, args []string) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	if err := a.vault.Files.SoftDeleteByID(ctx, args[0]); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Printf("No file with id %s", args[0])
			return nil
		}
		log.Printf("error: %v", err)
		return err
	}

	fmt.Println("Deleted", args[0])
	return nil
}
