// Package github provides a client for querying the GitHub API, used to
// find branches whose pull request was merged (squash or rebase merges
// git itself cannot see).
package github

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
)

// restGetter is the part of api.RESTClient the client uses.
type restGetter interface {
	Get(path string, resp interface{}) error
}

// Client wraps GitHub API access.
type Client struct {
	rest restGetter
}

// NewClient creates a GitHub client. It attempts to use authentication from
// the gh CLI config, falling back to the provided token, falling back to
// unauthenticated access.
func NewClient(token string) *Client {
	c := &Client{}

	rest, err := api.DefaultRESTClient()
	if err == nil {
		slog.Debug("using gh CLI authentication")
		c.rest = rest
		return c
	}
	slog.Debug("gh CLI auth not available", "error", err)

	if token != "" {
		rest, err = api.NewRESTClient(api.ClientOptions{
			AuthToken: token,
		})
		if err == nil {
			slog.Debug("using explicit token authentication")
			c.rest = rest
			return c
		}
		slog.Debug("token auth failed", "error", err)
	}

	// Unauthenticated -- will hit rate limits quickly.
	slog.Debug("using unauthenticated access (rate limits apply)")
	rest, err = api.NewRESTClient(api.ClientOptions{})
	if err != nil {
		slog.Warn("could not create REST client", "error", err)
		return c
	}
	c.rest = rest
	return c
}

var errNoClient = errors.New("no GitHub API client available")

// PRState represents the state of a GitHub pull request for a branch.
type PRState string

const (
	// PRStateNone means no PR was found for the branch.
	PRStateNone PRState = "none"
	// PRStateOpen means a PR is currently open.
	PRStateOpen PRState = "open"
	// PRStateMerged means the PR was merged.
	PRStateMerged PRState = "merged"
	// PRStateClosed means the PR was closed without merging.
	PRStateClosed PRState = "closed"
)

type pullResponse struct {
	State    string `json:"state"`
	MergedAt string `json:"merged_at"`
}

// BranchPRState returns the state of the most recently updated PR whose
// head is branch in owner/repo, or PRStateNone if there is none.
func (c *Client) BranchPRState(owner, repo, branch string) (PRState, error) {
	if c.rest == nil {
		return PRStateNone, errNoClient
	}

	var prs []pullResponse
	path := fmt.Sprintf("repos/%s/%s/pulls?head=%s&state=all&per_page=1&sort=updated&direction=desc",
		owner, repo, url.QueryEscape(owner+":"+branch))
	if err := c.rest.Get(path, &prs); err != nil {
		return PRStateNone, fmt.Errorf("querying PRs for %s/%s branch %s: %w", owner, repo, branch, err)
	}

	if len(prs) == 0 {
		return PRStateNone, nil
	}
	pr := prs[0]
	switch {
	case pr.State == "open":
		return PRStateOpen, nil
	case pr.MergedAt != "":
		return PRStateMerged, nil
	default:
		return PRStateClosed, nil
	}
}

// sshRemoteRe matches scp-style and ssh:// GitHub remote URLs:
//
//	git@github.com:owner/repo.git
//	ssh://git@github.com/owner/repo.git
var sshRemoteRe = regexp.MustCompile(`^(?:git@github\.com:|ssh://git@github\.com/)([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseGitHubRemote extracts owner and repo from a GitHub remote URL.
func ParseGitHubRemote(remoteURL string) (owner, repo string, ok bool) {
	if m := sshRemoteRe.FindStringSubmatch(remoteURL); m != nil {
		return m[1], m[2], true
	}

	remoteURL = strings.TrimSuffix(remoteURL, ".git")
	for _, prefix := range []string{"https://github.com/", "http://github.com/"} {
		if rest, found := strings.CutPrefix(remoteURL, prefix); found {
			parts := strings.SplitN(rest, "/", 3)
			if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
				return parts[0], strings.TrimSuffix(parts[1], ".git"), true
			}
		}
	}
	return "", "", false
}
