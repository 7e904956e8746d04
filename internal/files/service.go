// Package files resolves human-readable file and folder names to Drive items
// and schedules mutations on them as background tasks.
//
// Every lookup runs a fresh metadata query. A name must match exactly one
// item: zero matches is ErrNotFound, more than one is ErrConflict. Writes are
// validated synchronously, then handed to the scheduler; callers learn that
// the work was accepted, never whether it succeeded.
package files

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/gdrive-files/internal/gdrive"
	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

// Task op names, as recorded by the queue.
const (
	OpUpload = "upload"
	OpUpdate = "update"
	OpMove   = "move"
	OpDelete = "delete"
)

// Store is the subset of the Drive client the service needs.
type Store interface {
	Search(ctx context.Context, query string) ([]gdrive.Item, error)
	Create(ctx context.Context, title string, content []byte, parentID string) (*gdrive.Item, error)
	UpdateContent(ctx context.Context, fileID string, content []byte) (*gdrive.Item, error)
	Move(ctx context.Context, item gdrive.Item, newParentID string) (*gdrive.Item, error)
	Delete(ctx context.Context, fileID string) error
}

// Scheduler runs fn in the background.
type Scheduler interface {
	Schedule(op, target string, fn tasks.Func) (tasks.Handle, error)
}

// FileRef is the public projection of a Drive file.
type FileRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Ack acknowledges that a write was queued. It says nothing about whether
// the write will succeed.
type Ack struct {
	Detail string
	Task   tasks.Handle
}

// Service is bound to one Drive client and is meant to live for a single
// request.
type Service struct {
	store  Store
	sched  Scheduler
	logger *slog.Logger
}

// NewService returns a service over store that schedules writes on sched.
func NewService(store Store, sched Scheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, sched: sched, logger: logger}
}

// ListFiles returns the non-folder, non-trashed items in folderName, or in
// the whole drive when folderName is empty. Unlike the single-item lookups,
// an empty result is not an error.
func (s *Service) ListFiles(ctx context.Context, folderName string) ([]FileRef, error) {
	q := gdrive.NewQuery().ExcludeFolders().NotTrashed()

	if folderName != "" {
		folderID, err := s.ResolveFolderID(ctx, folderName)
		if err != nil {
			return nil, err
		}

		q.InParent(folderID)
	}

	items, err := s.search(ctx, q, folderName)
	if err != nil {
		return nil, err
	}

	refs := make([]FileRef, 0, len(items))
	for _, it := range items {
		refs = append(refs, FileRef{ID: it.ID, Title: it.Title})
	}

	s.logger.Debug("listed files",
		slog.String("folder", folderName),
		slog.Int("count", len(refs)),
	)

	return refs, nil
}

// GetFileByName returns the single file titled fileName, optionally scoped
// to folderName.
func (s *Service) GetFileByName(ctx context.Context, fileName, folderName string) (FileRef, error) {
	item, err := s.resolveFile(ctx, fileName, folderName)
	if err != nil {
		return FileRef{}, err
	}

	return FileRef{ID: item.ID, Title: item.Title}, nil
}

// ResolveFolderID returns the id of the single non-trashed folder titled
// folderName.
func (s *Service) ResolveFolderID(ctx context.Context, folderName string) (string, error) {
	name := normalize(folderName)
	q := gdrive.NewQuery().TitleIs(name).FoldersOnly().NotTrashed()

	item, err := s.single(ctx, q, name)
	if err != nil {
		return "", err
	}

	return item.ID, nil
}

// CreateFile queues an upload of content as fileName. When folderName is
// set the folder must exist now; the upload itself happens later.
func (s *Service) CreateFile(ctx context.Context, fileName string, content []byte, folderName string) (Ack, error) {
	name := normalize(fileName)

	var folderID string

	if folderName != "" {
		id, err := s.ResolveFolderID(ctx, folderName)
		if err != nil {
			return Ack{}, err
		}

		folderID = id
	}

	h, err := s.sched.Schedule(OpUpload, name, func(ctx context.Context) error {
		created, err := s.store.Create(ctx, name, content, folderID)
		if err != nil {
			return &OpError{Kind: NotUploaded, Name: name, Err: err}
		}

		s.logger.Info("file uploaded",
			slog.String("name", name),
			slog.String("id", created.ID),
		)

		return nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("files: scheduling upload of %q: %w", name, err)
	}

	return Ack{Detail: "Your file has been added to the queue to be added to Google Drive", Task: h}, nil
}

// UpdateFileContent queues a content replace of the existing file.
func (s *Service) UpdateFileContent(ctx context.Context, fileName string, content []byte, folderName string) (Ack, error) {
	item, err := s.resolveFile(ctx, fileName, folderName)
	if err != nil {
		return Ack{}, err
	}

	h, err := s.sched.Schedule(OpUpdate, item.Title, func(ctx context.Context) error {
		if _, err := s.store.UpdateContent(ctx, item.ID, content); err != nil {
			return &OpError{Kind: NotUpdated, Name: item.Title, Err: err}
		}

		s.logger.Info("file updated", slog.String("name", item.Title), slog.String("id", item.ID))

		return nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("files: scheduling update of %q: %w", item.Title, err)
	}

	return Ack{Detail: "Your file has been added to the queue to be updated in Google Drive", Task: h}, nil
}

// MoveFile queues a move of fileName from oldFolderName to newFolderName.
// Only the source is validated here; the destination is resolved inside the
// task, so a bad destination shows up in the logs only.
func (s *Service) MoveFile(ctx context.Context, fileName, oldFolderName, newFolderName string) (Ack, error) {
	item, err := s.resolveFile(ctx, fileName, oldFolderName)
	if err != nil {
		return Ack{}, err
	}

	h, err := s.sched.Schedule(OpMove, item.Title, func(ctx context.Context) error {
		newParentID, err := s.ResolveFolderID(ctx, newFolderName)
		if err != nil {
			return &OpError{Kind: NotMoved, Name: item.Title, Err: err}
		}

		if _, err := s.store.Move(ctx, item, newParentID); err != nil {
			return &OpError{Kind: NotMoved, Name: item.Title, Err: err}
		}

		s.logger.Info("file moved",
			slog.String("name", item.Title),
			slog.String("to", newFolderName),
		)

		return nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("files: scheduling move of %q: %w", item.Title, err)
	}

	s.logger.Info("file move queued",
		slog.String("name", item.Title),
		slog.String("from", oldFolderName),
		slog.String("to", newFolderName),
	)

	return Ack{
		Detail: fmt.Sprintf("Your file named: %s has been added to the queue to be move to other folder", fileName),
		Task:   h,
	}, nil
}

// DeleteFileByName queues a permanent delete of the file. Drive's trash is
// bypassed.
func (s *Service) DeleteFileByName(ctx context.Context, fileName, folderName string) (Ack, error) {
	item, err := s.resolveFile(ctx, fileName, folderName)
	if err != nil {
		return Ack{}, err
	}

	h, err := s.sched.Schedule(OpDelete, item.Title, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, item.ID); err != nil {
			return &OpError{Kind: NotDeleted, Name: item.Title, Err: err}
		}

		s.logger.Info("file deleted", slog.String("name", item.Title), slog.String("id", item.ID))

		return nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("files: scheduling delete of %q: %w", item.Title, err)
	}

	s.logger.Info("file delete queued", slog.String("name", item.Title))

	return Ack{
		Detail: fmt.Sprintf("Your file named: %s has been added to the queue to be delete.", fileName),
		Task:   h,
	}, nil
}

// resolveFile finds the single non-trashed item titled fileName, inside
// folderName when it is set. A missing folder fails before the file query.
func (s *Service) resolveFile(ctx context.Context, fileName, folderName string) (gdrive.Item, error) {
	name := normalize(fileName)
	q := gdrive.NewQuery().TitleIs(name).NotTrashed()

	if folderName != "" {
		folderID, err := s.ResolveFolderID(ctx, folderName)
		if err != nil {
			return gdrive.Item{}, err
		}

		q.InParent(folderID)
	}

	return s.single(ctx, q, name)
}

// single runs q and requires exactly one result.
func (s *Service) single(ctx context.Context, q *gdrive.Query, name string) (gdrive.Item, error) {
	items, err := s.search(ctx, q, name)
	if err != nil {
		return gdrive.Item{}, err
	}

	switch len(items) {
	case 0:
		return gdrive.Item{}, &ResolveError{Name: name, Err: ErrNotFound}
	case 1:
		return items[0], nil
	default:
		s.logger.Warn("name matches several items",
			slog.String("name", name),
			slog.Int("count", len(items)),
		)

		return gdrive.Item{}, &ResolveError{Name: name, Err: ErrConflict}
	}
}

func (s *Service) search(ctx context.Context, q *gdrive.Query, name string) ([]gdrive.Item, error) {
	items, err := s.store.Search(ctx, q.String())
	if err != nil {
		return nil, &OpError{Kind: InvalidExecutionRequest, Name: name, Err: err}
	}

	return items, nil
}

// normalize converts a name to NFC so that names typed on systems that
// produce decomposed forms still match what Drive stores.
func normalize(name string) string {
	return norm.NFC.String(name)
}
