// Package upload orchestrates file ingestion: hash and dedup via the blob
// engine, thumbnail derivation, metadata insert, and progress reporting.
//
// Each upload is an independent task; concurrent uploads never serialize on
// each other except where they race on identical content, in which case the
// blob engine's per-path convergence applies.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tearleads/rapidvault/internal/blobstore"
	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/logging"
	"github.com/tearleads/rapidvault/internal/metadata"
	"github.com/tearleads/rapidvault/internal/thumbs"
)

// Status is the lifecycle state of an upload task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

// Task is the transient, UI-facing state of one upload. Tasks live in
// memory only and are removed with ClearTask once the caller has
// acknowledged the terminal state.
type Task struct {
	ID       string
	Name     string
	Progress int
	Status   Status
	Error    string
}

// Result is the outcome of a successful upload. IsDuplicate reports that
// byte-identical content was already stored; it is a success signal, not an
// error.
type Result struct {
	ID          string
	Path        string
	Thumbnail   metadata.Thumbnail
	IsDuplicate bool
}

// Coordinator drives uploads end to end.
type Coordinator struct {
	store  *blobstore.Store
	thumbs *thumbs.Pipeline
	files  metadata.Repository
	log    logging.Logger

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewCoordinator(store *blobstore.Store, thumbs *thumbs.Pipeline, files metadata.Repository, log logging.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		thumbs: thumbs,
		files:  files,
		log:    log,
		tasks:  make(map[string]*Task),
	}
}

// UploadFile ingests one file. The payload is hashed and stored through the
// blob engine, a thumbnail is derived for image content, and a FileRecord
// row is written. Progress ticks from 0 to 100 are sent to obs (which may
// be nil).
//
// Failures are terminal for this task only; sibling uploads are unaffected.
func (c *Coordinator) UploadFile(ctx context.Context, name string, payload []byte, obs ProgressObserver) (*Result, error) {
	if len(payload) == 0 {
		return nil, common.ErrEmptyPayload
	}

	task := c.newTask(name)
	report := func(percent int) {
		c.setProgress(task.ID, percent)
		if obs != nil {
			obs.Progress(percent)
		}
	}

	c.setStatus(task.ID, StatusUploading, "")
	report(0)

	mimeType := http.DetectContentType(payload)
	report(20)

	path, isDuplicate, err := c.store.Store(ctx, payload)
	if err != nil {
		c.setStatus(task.ID, StatusError, err.Error())
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	report(60)

	thumbnail := c.deriveThumbnail(ctx, name, payload, mimeType)
	report(85)

	rec := &metadata.FileRecord{
		ID:          task.ID,
		Name:        name,
		Size:        int64(len(payload)),
		MimeType:    mimeType,
		UploadDate:  time.Now().UTC(),
		StoragePath: path,
		Thumbnail:   thumbnail,
	}
	if err := c.files.Insert(ctx, rec); err != nil {
		c.setStatus(task.ID, StatusError, err.Error())
		return nil, fmt.Errorf("save record for %s: %w", name, err)
	}
	report(100)

	if isDuplicate {
		c.setStatus(task.ID, StatusDuplicate, "")
	} else {
		c.setStatus(task.ID, StatusComplete, "")
	}

	return &Result{
		ID:          task.ID,
		Path:        path,
		Thumbnail:   thumbnail,
		IsDuplicate: isDuplicate,
	}, nil
}

// deriveThumbnail is non-fatal by contract: any failure degrades to the
// absent variant plus a logged warning.
func (c *Coordinator) deriveThumbnail(ctx context.Context, name string, payload []byte, mimeType string) metadata.Thumbnail {
	if !strings.HasPrefix(mimeType, "image/") {
		return metadata.NoThumbnail()
	}

	path, err := c.thumbs.DeriveAndStore(ctx, payload, mimeType)
	if err != nil {
		c.log.Warn(ctx, "thumbnail derivation failed", "name", name, "error", err)
		return metadata.NoThumbnail()
	}
	return metadata.ThumbnailAt(path)
}

// Tasks returns a snapshot of all tracked tasks.
func (c *Coordinator) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, *t)
	}
	return out
}

// Task returns a snapshot of one task.
func (c *Coordinator) Task(id string) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// ClearTask removes an acknowledged task.
func (c *Coordinator) ClearTask(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}

func (c *Coordinator) newTask(name string) *Task {
	t := &Task{ID: uuid.NewString(), Name: name, Status: StatusPending}
	c.mu.Lock()
	c.tasks[t.ID] = t
	c.mu.Unlock()
	return t
}

func (c *Coordinator) setProgress(id string, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[id]; ok {
		t.Progress = percent
	}
}

func (c *Coordinator) setStatus(id string, status Status, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[id]; ok {
		t.Status = status
		t.Error = errMsg
	}
}
