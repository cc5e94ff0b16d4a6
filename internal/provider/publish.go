package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/google/uuid"
)

// CommitFile is one file included in a published commit.
type CommitFile struct {
	// Path is the repository-relative file path.
	Path string
	// Content is the raw file content.
	Content []byte
	// Mode is the git file mode; defaults to a regular file when empty.
	Mode string
}

// Commit is the result of a publish.
type Commit struct {
	SHA  string `json:"sha"`
	Tree struct {
		SHA string `json:"sha"`
	} `json:"tree"`
	Message string `json:"message,omitempty"`
}

type refResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

type blobResponse struct {
	SHA string `json:"sha"`
}

type treeRequestEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// Publish composes a multi-file commit on top of the branch head through the
// provider's git-data endpoints: resolve the ref, create a blob per file,
// create a tree against the base, create the commit, then advance the ref.
// The steps run strictly in sequence; each awaits completion before the next.
func (c *Client) Publish(ctx context.Context, owner, repo, branch, message string, files []CommitFile) (*Commit, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("provider: publish requires at least one file")
	}
	if branch == "" {
		return nil, fmt.Errorf("provider: publish requires a branch")
	}

	entry := logging.Entry(ctx).WithField("repo", owner+"/"+repo).WithField("branch", branch)
	attemptID := uuid.NewString()
	entry.Debugf("publish attempt %s: %d file(s)", attemptID, len(files))

	repoPath := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))

	var ref refResponse
	if err := c.do(ctx, http.MethodGet, repoPath+"/git/ref/heads/"+url.PathEscape(branch), nil, &ref); err != nil {
		return nil, fmt.Errorf("provider: resolve branch head failed: %w", err)
	}
	baseCommitSHA := ref.Object.SHA
	if baseCommitSHA == "" {
		return nil, fmt.Errorf("provider: branch %s has no head commit", branch)
	}

	var baseCommit Commit
	if err := c.do(ctx, http.MethodGet, repoPath+"/git/commits/"+url.PathEscape(baseCommitSHA), nil, &baseCommit); err != nil {
		return nil, fmt.Errorf("provider: fetch base commit failed: %w", err)
	}

	treeEntries := make([]treeRequestEntry, 0, len(files))
	for _, file := range files {
		var blob blobResponse
		payload := map[string]string{
			"content":  base64.StdEncoding.EncodeToString(file.Content),
			"encoding": "base64",
		}
		if err := c.do(ctx, http.MethodPost, repoPath+"/git/blobs", payload, &blob); err != nil {
			return nil, fmt.Errorf("provider: create blob for %s failed: %w", file.Path, err)
		}
		mode := file.Mode
		if mode == "" {
			mode = "100644"
		}
		treeEntries = append(treeEntries, treeRequestEntry{
			Path: file.Path,
			Mode: mode,
			Type: "blob",
			SHA:  blob.SHA,
		})
	}

	var newTree Tree
	treePayload := map[string]any{
		"base_tree": baseCommit.Tree.SHA,
		"tree":      treeEntries,
	}
	if err := c.do(ctx, http.MethodPost, repoPath+"/git/trees", treePayload, &newTree); err != nil {
		return nil, fmt.Errorf("provider: create tree failed: %w", err)
	}

	var newCommit Commit
	commitPayload := map[string]any{
		"message": message,
		"tree":    newTree.SHA,
		"parents": []string{baseCommitSHA},
	}
	if err := c.do(ctx, http.MethodPost, repoPath+"/git/commits", commitPayload, &newCommit); err != nil {
		return nil, fmt.Errorf("provider: create commit failed: %w", err)
	}

	refPayload := map[string]any{"sha": newCommit.SHA}
	if err := c.do(ctx, http.MethodPatch, repoPath+"/git/refs/heads/"+url.PathEscape(branch), refPayload, nil); err != nil {
		return nil, fmt.Errorf("provider: update ref failed: %w", err)
	}

	entry.WithField("status", "committed").Infof("publish attempt %s committed as %s", attemptID, newCommit.SHA)
	return &newCommit, nil
}
