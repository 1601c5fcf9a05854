package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// GitHubClient pushes JSON state snapshots to the code-hosting platform
// under a state/ path.
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	logger *slog.Logger
}

// NewGitHubClient creates a GitHub state-push client. Returns nil when the
// token or repository is not configured.
func NewGitHubClient(token, owner, repo, branch string) *GitHubClient {
	if token == "" || owner == "" || repo == "" {
		return nil
	}
	if branch == "" {
		branch = "main"
	}
	return &GitHubClient{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		branch: branch,
		logger: slog.Default().With("component", "github-store"),
	}
}

// PushStateFile creates or updates state/<name>.json on the configured
// branch.
func (c *GitHubClient) PushStateFile(ctx context.Context, name string, content []byte) error {
	if c == nil {
		return fmt.Errorf("github store not configured")
	}

	path := "state/" + name + ".json"
	message := fmt.Sprintf("chore: update %s snapshot", name)

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(c.branch),
	}

	// Existing files need their blob SHA for an update.
	existing, _, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: c.branch})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		// New file — no SHA needed.
	case err != nil:
		return fmt.Errorf("failed to check existing %s: %w", path, err)
	}

	if opts.SHA != nil {
		_, _, err = c.client.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts)
	} else {
		_, _, err = c.client.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", path, err)
	}

	c.logger.Info("State file pushed", "path", path, "bytes", len(content))
	return nil
}
