package cli

import (
	"context"
	"fmt"
	"log"
	"time"
)

// List prints one line per stored file: id, name, size, mime type and
// upload date.
func (a *App) List(ctx context.Context) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	records, err := a.vault.Files.List(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if len(records) == 0 {
		fmt.Println("Vault is empty")
		return nil
	}

	for _, r := range records {
		thumb := ""
		if _, ok := r.Thumbnail.Path(); ok {
			thumb = " [thumb]"
		}
		fmt.Printf("%s  %s  %d bytes  %s  %s%s\n",
			r.ID, r.Name, r.Size, r.MimeType, r.UploadDate.Local().Format("2006-01-02 15:04"), thumb)
	}
	return nil
}

// Stats prints blob count and total stored content size for the instance.
func (a *App) Stats(ctx context.Context) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	count, size, err := a.vault.Stats(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	fmt.Printf("Blobs: %d, total content: %d bytes\n", count, size)
	return nil
}

// Events prints the retrieval telemetry recorded during this session.
func (a *App) Events(ctx context.Context) error {
	if a.vault == nil {
		log.Println("Vault is not unlocked")
		return nil
	}

	events := a.vault.RetrievalEvents()
	if len(events) == 0 {
		fmt.Println("No retrievals this session")
		return nil
	}

	for _, ev := range events {
		fmt.Printf("%s  %s  %s\n", ev.Path[:8], ev.Duration.Round(time.Microsecond), ev.Outcome)
	}
	return nil
}
