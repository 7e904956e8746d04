package gdrive

import "google.golang.org/api/drive/v3"

// FolderMimeType identifies folders in Drive metadata.
const FolderMimeType = "application/vnd.google-apps.folder"

// Item is a Drive file or folder, reduced to the fields the service uses.
// Title is Drive's "name" field; it is not unique in Drive.
type Item struct {
	ID       string
	Title    string
	MimeType string
	Parents  []string
	Trashed  bool
}

// IsFolder reports whether the item is a Drive folder.
func (i Item) IsFolder() bool {
	return i.MimeType == FolderMimeType
}

// Account identifies the Google account behind the credential cache.
type Account struct {
	DisplayName string
	Email       string
	QuotaUsed   int64
	QuotaLimit  int64 // 0 when the account has unlimited storage
}

func toItem(f *drive.File) Item {
	parents := make([]string, len(f.Parents))
	copy(parents, f.Parents)

	return Item{
		ID:       f.Id,
		Title:    f.Name,
		MimeType: f.MimeType,
		Parents:  parents,
		Trashed:  f.Trashed,
	}
}
