package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient writes nightly backups to the file-storage platform under a
// day-stamped folder tree.
type DriveClient struct {
	service *drive.Service
	rootID  string
	logger  *slog.Logger

	folderMu sync.Mutex
	folders  map[string]string // path → folder ID
}

// NewDriveClient creates a Drive client from service-account credentials.
// Returns nil when credentialsPath or rootFolderID is empty.
func NewDriveClient(ctx context.Context, credentialsPath, rootFolderID string) (*DriveClient, error) {
	if credentialsPath == "" || rootFolderID == "" {
		return nil, nil
	}

	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveClient{
		service: service,
		rootID:  rootFolderID,
		logger:  slog.Default().With("component", "drive-store"),
		folders: make(map[string]string),
	}, nil
}

// ClearCache drops the discovered folder IDs.
func (c *DriveClient) ClearCache() {
	if c == nil {
		return
	}
	c.folderMu.Lock()
	defer c.folderMu.Unlock()
	c.folders = make(map[string]string)
}

// WriteBackupFile writes one JSON file under backups/<day>/<name>.json.
func (c *DriveClient) WriteBackupFile(ctx context.Context, day, name string, content []byte) error {
	if c == nil {
		return fmt.Errorf("drive store not configured")
	}

	folderID, err := c.ensureFolderPath(ctx, "backups/"+day)
	if err != nil {
		return err
	}

	file := &drive.File{
		Name:     name + ".json",
		Parents:  []string{folderID},
		MimeType: "application/json",
	}
	_, err = c.service.Files.Create(file).
		Media(strings.NewReader(string(content))).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	c.logger.Info("Backup file written", "day", day, "file", name, "bytes", len(content))
	return nil
}

// ensureFolderPath finds or creates the nested folder path under the root,
// caching IDs per process.
func (c *DriveClient) ensureFolderPath(ctx context.Context, path string) (string, error) {
	c.folderMu.Lock()
	if id, ok := c.folders[path]; ok {
		c.folderMu.Unlock()
		return id, nil
	}
	c.folderMu.Unlock()

	parent := c.rootID
	for _, segment := range strings.Split(path, "/") {
		id, err := c.ensureFolder(ctx, parent, segment)
		if err != nil {
			return "", err
		}
		parent = id
	}

	c.folderMu.Lock()
	c.folders[path] = parent
	c.folderMu.Unlock()
	return parent, nil
}

func (c *DriveClient) ensureFolder(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf(
		"name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", "\\'"), parentID, folderMimeType)

	list, err := c.service.Files.List().
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search folder %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := c.service.Files.Create(&drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: folderMimeType,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return folder.Id, nil
}

// PublishDeliverable uploads a deliverable as a text file under
// deliverables/<team>/. Implements Publisher as the fallback store.
func (c *DriveClient) PublishDeliverable(ctx context.Context, d Deliverable) (*PublishResult, error) {
	if c == nil {
		return nil, fmt.Errorf("drive store not configured")
	}

	folderID, err := c.ensureFolderPath(ctx, "deliverables/"+d.TeamID)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("%s\n\nBy %s | mission %s | step %s\n\n%s",
		d.Title, d.AgentName, d.MissionID, d.StepID, d.Content)

	file, err := c.service.Files.Create(&drive.File{
		Name:    d.Title + ".md",
		Parents: []string{folderID},
	}).Media(strings.NewReader(body)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload deliverable: %w", err)
	}

	return &PublishResult{
		ID:  file.Id,
		URL: "https://drive.google.com/file/d/" + file.Id,
	}, nil
}
