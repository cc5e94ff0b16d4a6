package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/gitscribe/gitscribe/internal/oauth"
	"github.com/gitscribe/gitscribe/internal/provider"
	"github.com/gitscribe/gitscribe/internal/session"
)

// newGateway wires the session store, credential manager, and provider
// client for the repository commands.
func newGateway(cfg *config.Config) (*provider.Client, *oauth.CredentialManager) {
	store := session.NewFileStore(cfg.SessionFile())
	manager := oauth.NewCredentialManager(store)
	var reqLogger logging.RequestLogger
	if cfg.RequestLog {
		dir := cfg.LogDir
		if dir == "" {
			dir = filepath.Join(cfg.SessionDir, "logs")
		}
		reqLogger = logging.NewFileRequestLogger(true, dir)
	}
	return provider.NewClient(cfg, manager, reqLogger), manager
}

// reportAuthFailure handles a rejected credential: per the session contract,
// a 401/403 from a downstream call is the caller's signal to drop the
// credential and ask the user to log in again.
func reportAuthFailure(err error, manager *oauth.CredentialManager) error {
	if errors.Is(err, provider.ErrNotLoggedIn) {
		return fmt.Errorf("not logged in; run gitscribe -login first")
	}
	if errors.Is(err, provider.ErrUnauthorized) {
		_ = manager.Clear()
		return fmt.Errorf("the provider rejected the stored credential; it has been cleared, run gitscribe -login again")
	}
	return err
}

func commandContext() context.Context {
	return logging.WithRequestID(context.Background(), logging.GenerateRequestID())
}

// DoWhoami prints the identity behind the stored credential.
func DoWhoami(cfg *config.Config) error {
	client, manager := newGateway(cfg)
	user, err := client.CurrentUser(commandContext())
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	if user.Name != "" {
		fmt.Printf("%s (%s)\n", user.Login, user.Name)
		return nil
	}
	fmt.Println(user.Login)
	return nil
}

// DoRepos lists the repositories visible to the authenticated user.
func DoRepos(cfg *config.Config) error {
	client, manager := newGateway(cfg)
	repos, err := client.ListRepositories(commandContext())
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	if len(repos) == 0 {
		fmt.Println("No repositories")
		return nil
	}
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		fmt.Printf("%-50s %-8s %s\n", repo.FullName, visibility, repo.DefaultBranch)
	}
	return nil
}

// DoBranches lists the branches of one repository given as owner/repo.
func DoBranches(cfg *config.Config, repoArg string) error {
	owner, repo, err := splitRepoArg(repoArg)
	if err != nil {
		return err
	}
	client, manager := newGateway(cfg)
	branches, err := client.ListBranches(commandContext(), owner, repo)
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	for _, branch := range branches {
		fmt.Printf("%-40s %s\n", branch.Name, branch.Commit.SHA)
	}
	return nil
}

// DoTree prints the file tree of owner/repo at an optional @ref suffix.
func DoTree(cfg *config.Config, repoArg string) error {
	repoArg, ref := splitRef(repoArg)
	owner, repo, err := splitRepoArg(repoArg)
	if err != nil {
		return err
	}
	ctx := commandContext()
	client, manager := newGateway(cfg)
	if ref == "" {
		repository, errRepo := client.GetRepository(ctx, owner, repo)
		if errRepo != nil {
			return reportAuthFailure(errRepo, manager)
		}
		ref = repository.DefaultBranch
	}
	tree, err := client.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	entries := append([]provider.TreeEntry(nil), tree.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	for _, entry := range entries {
		marker := " "
		if entry.Type == "tree" {
			marker = "/"
		}
		fmt.Printf("%s%s\n", entry.Path, marker)
	}
	if tree.Truncated {
		fmt.Println("(listing truncated by the provider)")
	}
	return nil
}

// DoCat prints one file from owner/repo at an optional @ref suffix.
func DoCat(cfg *config.Config, repoArg, filePath string) error {
	repoArg, ref := splitRef(repoArg)
	owner, repo, err := splitRepoArg(repoArg)
	if err != nil {
		return err
	}
	client, manager := newGateway(cfg)
	contents, err := client.GetContents(commandContext(), owner, repo, filePath, ref)
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	data, err := contents.Decode()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// DoPublish commits the given local files to owner/repo on branch in a
// single multi-file commit.
func DoPublish(cfg *config.Config, repoArg, branch, message string, paths []string) error {
	owner, repo, err := splitRepoArg(repoArg)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("publish requires at least one file argument")
	}
	if message == "" {
		message = "Publish content via gitscribe"
	}

	ctx := commandContext()
	client, manager := newGateway(cfg)

	if branch == "" {
		repository, errRepo := client.GetRepository(ctx, owner, repo)
		if errRepo != nil {
			return reportAuthFailure(errRepo, manager)
		}
		branch = repository.DefaultBranch
	}

	files := make([]provider.CommitFile, 0, len(paths))
	for _, path := range paths {
		data, errRead := os.ReadFile(path)
		if errRead != nil {
			return fmt.Errorf("read %s failed: %w", path, errRead)
		}
		files = append(files, provider.CommitFile{
			Path:    filepath.ToSlash(filepath.Clean(path)),
			Content: data,
		})
	}

	commit, err := client.Publish(ctx, owner, repo, branch, message, files)
	if err != nil {
		return reportAuthFailure(err, manager)
	}
	fmt.Printf("Published %d file(s) to %s/%s@%s as %s\n", len(files), owner, repo, branch, commit.SHA)
	return nil
}

func splitRepoArg(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be given as owner/repo, got %q", arg)
	}
	return parts[0], parts[1], nil
}

func splitRef(arg string) (string, string) {
	if idx := strings.LastIndex(arg, "@"); idx > 0 {
		return arg[:idx], arg[idx+1:]
	}
	return arg, ""
}
