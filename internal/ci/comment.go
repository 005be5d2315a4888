package ci

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v30/github"
	"golang.org/x/oauth2"
)

// PullRequestNumber extracts N from refs/pull/N/merge or refs/pull/N/head.
func PullRequestNumber(ref string) (int, bool) {
	rest, ok := strings.CutPrefix(ref, "refs/pull/")
	if !ok {
		return 0, false
	}
	num, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Commenter posts run summaries on pull requests.
type Commenter struct {
	client *github.Client
}

// NewCommenter returns a commenter authenticated with token. apiURL selects
// a GitHub Enterprise API root; empty means api.github.com.
func NewCommenter(ctx context.Context, token, apiURL string) (*Commenter, error) {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	client := github.NewClient(hc)
	if apiURL != "" && apiURL != "https://api.github.com" {
		u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid api url %q: %w", apiURL, err)
		}
		client.BaseURL = u
	}
	return &Commenter{client: client}, nil
}

// Post adds body as a comment on pull request number of repo (owner/name).
func (c *Commenter) Post(ctx context.Context, repo string, number int, body string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return fmt.Errorf("invalid repository %q", repo)
	}
	_, _, err := c.client.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		return fmt.Errorf("post comment on %s#%d: %w", repo, number, err)
	}
	return nil
}
