package gdrive

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
)

// listPageSize is the pageSize for files.list. 1000 is the Drive maximum.
const listPageSize = 1000

// Partial-response field selectors.
const (
	itemFields  = "id, name, mimeType, parents, trashed"
	listFields  = "nextPageToken, files(" + itemFields + ")"
	aboutFields = "user(displayName, emailAddress), storageQuota(limit, usage)"
)

// Search runs a files.list query and follows pagination until every match
// has been collected.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	var (
		items     []Item
		pageToken string
		pages     int
	)

	for {
		call := c.svc.Files.List().
			Q(query).
			PageSize(listPageSize).
			Fields(listFields).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classify("listing files", err)
		}

		pages++

		for _, f := range resp.Files {
			items = append(items, toItem(f))
		}

		if resp.NextPageToken == "" {
			break
		}

		pageToken = resp.NextPageToken
	}

	c.logger.Debug("search complete",
		slog.String("query", query),
		slog.Int("matches", len(items)),
		slog.Int("pages", pages),
	)

	return items, nil
}

// Create uploads a new file named title with the given content. An empty
// parentID leaves the file in the account root.
func (c *Client) Create(ctx context.Context, title string, content []byte, parentID string) (*Item, error) {
	meta := &drive.File{Name: title}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	f, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(content)).
		Fields(itemFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("creating file", err)
	}

	item := toItem(f)

	c.logger.Debug("file created",
		slog.String("id", item.ID),
		slog.String("title", item.Title),
		slog.Int("bytes", len(content)),
	)

	return &item, nil
}

// UpdateContent replaces the content of an existing file, keeping its
// metadata.
func (c *Client) UpdateContent(ctx context.Context, fileID string, content []byte) (*Item, error) {
	f, err := c.svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(content)).
		Fields(itemFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("updating file content", err)
	}

	item := toItem(f)

	c.logger.Debug("file content updated",
		slog.String("id", item.ID),
		slog.Int("bytes", len(content)),
	)

	return &item, nil
}

// Move reparents item under newParentID, detaching it from every parent it
// had when it was resolved.
func (c *Client) Move(ctx context.Context, item Item, newParentID string) (*Item, error) {
	call := c.svc.Files.Update(item.ID, &drive.File{}).
		AddParents(newParentID).
		Fields(itemFields).
		Context(ctx)

	if len(item.Parents) > 0 {
		call = call.RemoveParents(strings.Join(item.Parents, ","))
	}

	f, err := call.Do()
	if err != nil {
		return nil, classify("moving file", err)
	}

	moved := toItem(f)

	c.logger.Debug("file moved",
		slog.String("id", moved.ID),
		slog.String("new_parent", newParentID),
	)

	return &moved, nil
}

// Delete permanently deletes a file, bypassing the trash.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if err := c.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return classify("deleting file", err)
	}

	c.logger.Debug("file deleted", slog.String("id", fileID))

	return nil
}

// About returns the account behind the client's credentials.
func (c *Client) About(ctx context.Context) (*Account, error) {
	about, err := c.svc.About.Get().Fields(aboutFields).Context(ctx).Do()
	if err != nil {
		return nil, classify("fetching account", err)
	}

	acct := &Account{}
	if about.User != nil {
		acct.DisplayName = about.User.DisplayName
		acct.Email = about.User.EmailAddress
	}

	if about.StorageQuota != nil {
		acct.QuotaUsed = about.StorageQuota.Usage
		acct.QuotaLimit = about.StorageQuota.Limit
	}

	return acct, nil
}
