// Package gitmeta reads repository metadata used to label uploads.
package gitmeta

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo is best-effort metadata for a working tree. Any field may be empty.
type Repo struct {
	Root   string
	Name   string // owner/name from the origin remote
	Branch string
	Commit string
}

// Open finds the repository containing path, searching parent directories.
func Open(path string) (Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Repo{}, fmt.Errorf("invalid path %q: %w", path, err)
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Repo{}, err
	}

	var meta Repo
	if wt, err := r.Worktree(); err == nil {
		meta.Root = wt.Filesystem.Root()
	}
	if head, err := r.Head(); err == nil {
		meta.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			meta.Branch = head.Name().Short()
		}
	} else if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Unborn branch: HEAD names a branch with no commits yet.
		if ref, err := r.Storer.Reference(plumbing.HEAD); err == nil && ref.Type() == plumbing.SymbolicReference {
			meta.Branch = ref.Target().Short()
		}
	}
	if remote, err := r.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			meta.Name = RepoName(urls[0])
		}
	}
	return meta, nil
}

// Lookup is Open without the error, for callers that only want labels.
func Lookup(path string) Repo {
	meta, _ := Open(path)
	return meta
}

// RepoName reduces a remote URL to owner/name.
func RepoName(url string) string {
	s := strings.TrimSpace(url)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j+1:]
		}
	} else if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// StatePath returns where a state file named name is kept for root: inside
// .git when root is a repository, else a dotfile in root.
func StatePath(root, name string) string {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "pipescan_"+name)
	}
	return filepath.Join(root, ".pipescan_"+name)
}
