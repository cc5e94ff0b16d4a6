package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// User is the provider account profile.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Repository describes one repository visible to the authenticated user.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Description   string `json:"description,omitempty"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url,omitempty"`
}

// Branch is a repository branch head.
type Branch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// TreeEntry is one node of a git tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

// Tree is a git tree, optionally recursive. Truncated indicates the provider
// cut the listing short; callers should surface that rather than treat the
// listing as complete.
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// Contents is a single file fetched through the contents endpoint.
type Contents struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Decode returns the raw file bytes.
func (c *Contents) Decode() ([]byte, error) {
	switch c.Encoding {
	case "base64":
		// Providers wrap base64 content at 60 columns.
		compact := strings.ReplaceAll(c.Content, "\n", "")
		data, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return nil, fmt.Errorf("provider: decode contents failed: %w", err)
		}
		return data, nil
	case "", "utf-8":
		return []byte(c.Content), nil
	default:
		return nil, fmt.Errorf("provider: unsupported contents encoding %q", c.Encoding)
	}
}

// CurrentUser resolves the identity behind the stored credential.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	if user.Login == "" {
		return nil, fmt.Errorf("provider: user response missing login")
	}
	return &user, nil
}

// ListRepositories returns every repository visible to the authenticated
// user, following page-based pagination until the provider runs dry.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	const perPage = 100
	var all []Repository
	for page := 1; ; page++ {
		var batch []Repository
		path := fmt.Sprintf("/user/repos?per_page=%d&page=%d&sort=updated", perPage, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}

// ListBranches returns the repository's branches.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]Branch, error) {
	var branches []Branch
	path := fmt.Sprintf("/repos/%s/%s/branches", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// GetTree fetches the git tree at ref, recursively when recursive is set.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) (*Tree, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))
	if recursive {
		path += "?recursive=1"
	}
	var tree Tree
	if err := c.do(ctx, http.MethodGet, path, nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// GetContents fetches one file's contents at the given path and optional ref.
func (c *Client) GetContents(ctx context.Context, owner, repo, filePath, ref string) (*Contents, error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(filePath))
	if ref != "" {
		path += "?ref=" + url.QueryEscape(ref)
	}
	var contents Contents
	if err := c.do(ctx, http.MethodGet, path, nil, &contents); err != nil {
		return nil, err
	}
	return &contents, nil
}

// escapePath escapes each path segment while preserving separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
