package toolbin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v30/github"
	"golang.org/x/oauth2"
)

// GitHubReleases resolves release tags through the GitHub API.
type GitHubReleases struct {
	client *github.Client
}

// NewGitHubReleases returns a resolver. token may be empty, in which case
// unauthenticated (rate-limited) requests are made.
func NewGitHubReleases(ctx context.Context, token string) *GitHubReleases {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &GitHubReleases{client: github.NewClient(hc)}
}

// LatestTag implements ReleaseResolver.
func (g *GitHubReleases) LatestTag(ctx context.Context, repo string) (string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return "", fmt.Errorf("invalid repository %q", repo)
	}
	rel, _, err := g.client.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		return "", err
	}
	if rel.GetTagName() == "" {
		return "", fmt.Errorf("latest release of %s has no tag", repo)
	}
	return rel.GetTagName(), nil
}
