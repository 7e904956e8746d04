package gdrive

import "strings"

// Query builds a Drive search expression ("q" parameter) from clauses joined
// with "and". Values are escaped, so user-supplied names cannot change the
// shape of the query.
type Query struct {
	clauses []string
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// TitleIs matches items whose name equals title exactly.
func (q *Query) TitleIs(title string) *Query {
	return q.add("name = '" + escapeValue(title) + "'")
}

// InParent restricts the query to direct children of the given folder id.
func (q *Query) InParent(folderID string) *Query {
	return q.add("'" + escapeValue(folderID) + "' in parents")
}

// FoldersOnly restricts the query to folders.
func (q *Query) FoldersOnly() *Query {
	return q.add("mimeType = '" + FolderMimeType + "'")
}

// ExcludeFolders restricts the query to non-folder items.
func (q *Query) ExcludeFolders() *Query {
	return q.add("mimeType != '" + FolderMimeType + "'")
}

// NotTrashed excludes items in the trash.
func (q *Query) NotTrashed() *Query {
	return q.add("trashed = false")
}

func (q *Query) add(clause string) *Query {
	q.clauses = append(q.clauses, clause)
	return q
}

// String renders the query for the files.list "q" parameter.
func (q *Query) String() string {
	return strings.Join(q.clauses, " and ")
}

// escapeValue escapes backslashes and single quotes per the Drive query
// language.
func escapeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
