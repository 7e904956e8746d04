package files

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gdrive-files/internal/gdrive"
	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

// fakeStore is an in-memory drive. Search understands exactly the clause
// forms produced by gdrive.Query.
type fakeStore struct {
	mu      sync.Mutex
	items   []gdrive.Item
	queries []string
	nextID  int

	searchErr error
	writeErr  error

	content map[string][]byte
	deleted []string
}

func newFakeStore(items ...gdrive.Item) *fakeStore {
	return &fakeStore{items: items, content: make(map[string][]byte)}
}

func folder(id, title string) gdrive.Item {
	return gdrive.Item{ID: id, Title: title, MimeType: gdrive.FolderMimeType}
}

func file(id, title string, parents ...string) gdrive.Item {
	return gdrive.Item{ID: id, Title: title, MimeType: "text/plain", Parents: parents}
}

func (f *fakeStore) Search(_ context.Context, query string) ([]gdrive.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)

	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var out []gdrive.Item

	for _, it := range f.items {
		if matches(it, query) {
			out = append(out, it)
		}
	}

	return out, nil
}

func matches(it gdrive.Item, query string) bool {
	for _, clause := range strings.Split(query, " and ") {
		switch {
		case clause == "trashed = false":
			if it.Trashed {
				return false
			}
		case clause == "mimeType = '"+gdrive.FolderMimeType+"'":
			if !it.IsFolder() {
				return false
			}
		case clause == "mimeType != '"+gdrive.FolderMimeType+"'":
			if it.IsFolder() {
				return false
			}
		case strings.HasPrefix(clause, "name = '"):
			want := strings.TrimSuffix(strings.TrimPrefix(clause, "name = '"), "'")
			if it.Title != want {
				return false
			}
		case strings.HasSuffix(clause, "' in parents"):
			parent := strings.TrimSuffix(strings.TrimPrefix(clause, "'"), "' in parents")
			found := false

			for _, p := range it.Parents {
				if p == parent {
					found = true
				}
			}

			if !found {
				return false
			}
		default:
			panic("fakeStore: unknown clause " + clause)
		}
	}

	return true
}

func (f *fakeStore) Create(_ context.Context, title string, content []byte, parentID string) (*gdrive.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return nil, f.writeErr
	}

	f.nextID++
	it := gdrive.Item{ID: "new-" + string(rune('0'+f.nextID)), Title: title, MimeType: "application/octet-stream"}

	if parentID != "" {
		it.Parents = []string{parentID}
	}

	f.items = append(f.items, it)
	f.content[it.ID] = content

	return &it, nil
}

func (f *fakeStore) UpdateContent(_ context.Context, fileID string, content []byte) (*gdrive.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return nil, f.writeErr
	}

	f.content[fileID] = content

	return &gdrive.Item{ID: fileID}, nil
}

func (f *fakeStore) Move(_ context.Context, item gdrive.Item, newParentID string) (*gdrive.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return nil, f.writeErr
	}

	for i := range f.items {
		if f.items[i].ID == item.ID {
			f.items[i].Parents = []string{newParentID}
			moved := f.items[i]

			return &moved, nil
		}
	}

	return nil, gdrive.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}

	f.deleted = append(f.deleted, fileID)

	kept := f.items[:0]
	for _, it := range f.items {
		if it.ID != fileID {
			kept = append(kept, it)
		}
	}

	f.items = kept

	return nil
}

func (f *fakeStore) itemByTitle(title string) (gdrive.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.items {
		if it.Title == title {
			return it, true
		}
	}

	return gdrive.Item{}, false
}

// heldScheduler keeps tasks until runAll is called, so tests can observe the
// state between acceptance and execution.
type heldScheduler struct {
	pending []tasks.Func
	ops     []string
	err     error
}

func (h *heldScheduler) Schedule(op, target string, fn tasks.Func) (tasks.Handle, error) {
	if h.err != nil {
		return tasks.Handle{}, h.err
	}

	h.pending = append(h.pending, fn)
	h.ops = append(h.ops, op)

	return tasks.Handle{ID: "task-" + op, Op: op, Target: target}, nil
}

func (h *heldScheduler) runAll() []error {
	var errs []error

	for _, fn := range h.pending {
		errs = append(errs, fn(context.Background()))
	}

	h.pending = nil

	return errs
}

func newTestService(store *fakeStore) (*Service, *heldScheduler) {
	sched := &heldScheduler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(store, sched, logger), sched
}

func TestResolveFolderID(t *testing.T) {
	tests := []struct {
		name    string
		items   []gdrive.Item
		wantID  string
		wantErr error
	}{
		{"zero matches", nil, "", ErrNotFound},
		{"one match", []gdrive.Item{folder("f1", "Reports")}, "f1", nil},
		{"two matches", []gdrive.Item{folder("f1", "Reports"), folder("f2", "Reports")}, "", ErrConflict},
		{"file with same name ignored", []gdrive.Item{file("x", "Reports"), folder("f1", "Reports")}, "f1", nil},
		{"trashed folder ignored", []gdrive.Item{{ID: "f1", Title: "Reports", MimeType: gdrive.FolderMimeType, Trashed: true}}, "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newFakeStore(tt.items...))

			id, err := svc.ResolveFolderID(context.Background(), "Reports")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				var re *ResolveError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "Reports", re.Name)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestGetFileByName(t *testing.T) {
	tests := []struct {
		name    string
		items   []gdrive.Item
		folder  string
		wantID  string
		wantErr error
	}{
		{"zero matches", nil, "", "", ErrNotFound},
		{"one match", []gdrive.Item{file("a1", "a.txt")}, "", "a1", nil},
		{"two matches", []gdrive.Item{file("a1", "a.txt"), file("a2", "a.txt")}, "", "", ErrConflict},
		{
			"scoped to folder disambiguates",
			[]gdrive.Item{folder("f1", "Docs"), file("a1", "a.txt"), file("a2", "a.txt", "f1")},
			"Docs", "a2", nil,
		},
		{"missing folder", []gdrive.Item{file("a1", "a.txt")}, "Docs", "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newFakeStore(tt.items...))

			ref, err := svc.GetFileByName(context.Background(), "a.txt", tt.folder)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, FileRef{ID: tt.wantID, Title: "a.txt"}, ref)
		})
	}
}

func TestListFiles_WholeDriveExcludesFoldersAndTrash(t *testing.T) {
	store := newFakeStore(
		folder("f1", "Reports"),
		file("a1", "a.txt"),
		file("b1", "b.txt", "f1"),
		gdrive.Item{ID: "t1", Title: "old.txt", Trashed: true},
	)
	svc, _ := newTestService(store)

	refs, err := svc.ListFiles(context.Background(), "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []FileRef{{ID: "a1", Title: "a.txt"}, {ID: "b1", Title: "b.txt"}}, refs)
}

func TestListFiles_ScopedToFolder(t *testing.T) {
	store := newFakeStore(
		folder("f1", "Reports"),
		gdrive.Item{ID: "f2", Title: "Sub", MimeType: gdrive.FolderMimeType, Parents: []string{"f1"}},
		file("a1", "a.txt"),
		file("b1", "b.txt", "f1"),
	)
	svc, _ := newTestService(store)

	refs, err := svc.ListFiles(context.Background(), "Reports")
	require.NoError(t, err)

	assert.Equal(t, []FileRef{{ID: "b1", Title: "b.txt"}}, refs)
	assert.Contains(t, store.queries[len(store.queries)-1], "'f1' in parents")
}

func TestListFiles_MissingFolderShortCircuits(t *testing.T) {
	store := newFakeStore(file("a1", "a.txt"))
	svc, _ := newTestService(store)

	_, err := svc.ListFiles(context.Background(), "Reports")
	require.ErrorIs(t, err, ErrNotFound)

	// Only the folder lookup ran.
	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], gdrive.FolderMimeType)
}

// Single-item lookups reject an empty result, but listing does not. This is
// the current behavior, kept deliberately.
func TestListFiles_EmptyResultIsNotAnError(t *testing.T) {
	svc, _ := newTestService(newFakeStore(folder("f1", "Reports")))

	refs, err := svc.ListFiles(context.Background(), "Reports")
	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestListFiles_QueryFailure(t *testing.T) {
	store := newFakeStore()
	store.searchErr = gdrive.ErrServerError
	svc, _ := newTestService(store)

	_, err := svc.ListFiles(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidExecutionRequest))
	assert.ErrorIs(t, err, gdrive.ErrServerError)
}

func TestCreateFile_QueuesUpload(t *testing.T) {
	store := newFakeStore()
	svc, sched := newTestService(store)

	ack, err := svc.CreateFile(context.Background(), "a.txt", []byte("hi"), "")
	require.NoError(t, err)

	assert.Equal(t, "Your file has been added to the queue to be added to Google Drive", ack.Detail)
	assert.Equal(t, OpUpload, ack.Task.Op)
	assert.Equal(t, "a.txt", ack.Task.Target)

	// Accepted, not yet done.
	_, exists := store.itemByTitle("a.txt")
	assert.False(t, exists)

	require.Equal(t, []error{nil}, sched.runAll())

	it, exists := store.itemByTitle("a.txt")
	require.True(t, exists)
	assert.Empty(t, it.Parents)
	assert.Equal(t, []byte("hi"), store.content[it.ID])
}

func TestCreateFile_InFolder(t *testing.T) {
	store := newFakeStore(folder("f1", "Docs"))
	svc, sched := newTestService(store)

	_, err := svc.CreateFile(context.Background(), "a.txt", []byte("hi"), "Docs")
	require.NoError(t, err)
	sched.runAll()

	it, exists := store.itemByTitle("a.txt")
	require.True(t, exists)
	assert.Equal(t, []string{"f1"}, it.Parents)
}

func TestCreateFile_MissingFolder(t *testing.T) {
	svc, sched := newTestService(newFakeStore())

	_, err := svc.CreateFile(context.Background(), "a.txt", []byte("hi"), "Docs")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, sched.pending)
}

func TestCreateFile_UploadFailureStaysInTask(t *testing.T) {
	store := newFakeStore()
	store.writeErr = gdrive.ErrForbidden
	svc, sched := newTestService(store)

	_, err := svc.CreateFile(context.Background(), "a.txt", []byte("hi"), "")
	require.NoError(t, err)

	errs := sched.runAll()
	require.Len(t, errs, 1)
	assert.True(t, IsKind(errs[0], NotUploaded))
	assert.ErrorIs(t, errs[0], gdrive.ErrForbidden)
}

func TestCreateFile_QueueClosed(t *testing.T) {
	svc, sched := newTestService(newFakeStore())
	sched.err = tasks.ErrClosed

	_, err := svc.CreateFile(context.Background(), "a.txt", []byte("hi"), "")
	assert.ErrorIs(t, err, tasks.ErrClosed)
}

func TestUpdateFileContent(t *testing.T) {
	store := newFakeStore(file("a1", "a.txt"))
	svc, sched := newTestService(store)

	ack, err := svc.UpdateFileContent(context.Background(), "a.txt", []byte("v2"), "")
	require.NoError(t, err)
	assert.Equal(t, "Your file has been added to the queue to be updated in Google Drive", ack.Detail)

	assert.Nil(t, store.content["a1"])
	require.Equal(t, []error{nil}, sched.runAll())
	assert.Equal(t, []byte("v2"), store.content["a1"])
}

func TestUpdateFileContent_Duplicate(t *testing.T) {
	svc, sched := newTestService(newFakeStore(file("a1", "a.txt"), file("a2", "a.txt")))

	_, err := svc.UpdateFileContent(context.Background(), "a.txt", []byte("v2"), "")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, sched.pending)
}

func TestMoveFile(t *testing.T) {
	store := newFakeStore(folder("old", "Old"), folder("new", "New"), file("a1", "a.txt", "old"))
	svc, sched := newTestService(store)

	ack, err := svc.MoveFile(context.Background(), "a.txt", "Old", "New")
	require.NoError(t, err)
	assert.Equal(t, "Your file named: a.txt has been added to the queue to be move to other folder", ack.Detail)

	require.Equal(t, []error{nil}, sched.runAll())

	it, _ := store.itemByTitle("a.txt")
	assert.Equal(t, []string{"new"}, it.Parents)
}

func TestMoveFile_SourceMissing(t *testing.T) {
	store := newFakeStore(folder("old", "Old"), folder("new", "New"), file("a1", "a.txt"))
	svc, sched := newTestService(store)

	_, err := svc.MoveFile(context.Background(), "a.txt", "Old", "New")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, sched.pending, "reparent must never be scheduled")
}

// The destination is only resolved inside the task: a bad destination is
// accepted and fails later.
func TestMoveFile_BadDestinationFailsInTask(t *testing.T) {
	store := newFakeStore(folder("old", "Old"), file("a1", "a.txt", "old"))
	svc, sched := newTestService(store)

	_, err := svc.MoveFile(context.Background(), "a.txt", "Old", "Nowhere")
	require.NoError(t, err)

	errs := sched.runAll()
	require.Len(t, errs, 1)
	assert.True(t, IsKind(errs[0], NotMoved))
	assert.ErrorIs(t, errs[0], ErrNotFound)

	it, _ := store.itemByTitle("a.txt")
	assert.Equal(t, []string{"old"}, it.Parents)
}

func TestDeleteFileByName(t *testing.T) {
	store := newFakeStore(file("a1", "a.txt"))
	svc, sched := newTestService(store)

	ack, err := svc.DeleteFileByName(context.Background(), "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "Your file named: a.txt has been added to the queue to be delete.", ack.Detail)
	assert.Equal(t, OpDelete, ack.Task.Op)

	require.Equal(t, []error{nil}, sched.runAll())
	assert.Equal(t, []string{"a1"}, store.deleted)
}

func TestDeleteFileByName_Duplicate(t *testing.T) {
	svc, sched := newTestService(newFakeStore(file("d1", "dup.txt"), file("d2", "dup.txt")))

	_, err := svc.DeleteFileByName(context.Background(), "dup.txt", "")
	require.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, sched.pending)
}

func TestDeleteFileByName_FailureKind(t *testing.T) {
	store := newFakeStore(file("a1", "a.txt"))
	store.writeErr = errors.New("network down")
	svc, sched := newTestService(store)

	_, err := svc.DeleteFileByName(context.Background(), "a.txt", "")
	require.NoError(t, err)

	errs := sched.runAll()
	require.Len(t, errs, 1)
	assert.True(t, IsKind(errs[0], NotDeleted))
}

func TestNamesAreNormalizedToNFC(t *testing.T) {
	// "é" stored precomposed, requested decomposed.
	store := newFakeStore(file("c1", "caf\u00e9.txt"))
	svc, _ := newTestService(store)

	ref, err := svc.GetFileByName(context.Background(), "cafe\u0301.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "c1", ref.ID)
}

func TestResolveError_Messages(t *testing.T) {
	notFound := &ResolveError{Name: "a.txt", Err: ErrNotFound}
	assert.Equal(t, "Object with name: 'a.txt' doesn't exist", notFound.Error())

	dup := &ResolveError{Name: "a.txt", Err: ErrConflict}
	assert.Contains(t, dup.Error(), "duplicated by name")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "not uploaded", NotUploaded.String())
	assert.Equal(t, "invalid execution request", InvalidExecutionRequest.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
