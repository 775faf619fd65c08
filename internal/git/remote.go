// Package git reads repository coordinates from a local checkout so commands
// can default to the repository the user is standing in.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultRemote is the remote consulted when none is named
const DefaultRemote = "origin"

var (
	// https://github.com/owner/repo, git://host/owner/repo, ssh://git@host/owner/repo
	urlPattern = regexp.MustCompile(`^(?:https?|git|ssh)://(?:[^@/]+@)?[^/]+/([^/]+)/([^/]+)`)
	// git@github.com:owner/repo
	scpPattern = regexp.MustCompile(`^[^@\s/]+@[^:\s/]+:([^/]+)/([^/]+)`)
)

// ParseRepoURL extracts owner and repo name from a git remote URL.
// Supported formats:
//   - HTTPS: https://github.com/owner/repo.git
//   - SSH: git@github.com:owner/repo.git
//   - SSH URL: ssh://git@github.com/owner/repo
//   - Git protocol: git://github.com/owner/repo.git
func ParseRepoURL(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSpace(remoteURL)

	for _, re := range []*regexp.Regexp{urlPattern, scpPattern} {
		if m := re.FindStringSubmatch(remoteURL); len(m) == 3 {
			repo = strings.TrimSuffix(m[2], ".git")
			if m[1] != "" && repo != "" {
				return m[1], repo, nil
			}
		}
	}
	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}

// RemoteURL returns the URL of remote for the checkout at dir. An empty dir
// means the working directory.
func RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	if remote == "" {
		remote = DefaultRemote
	}

	args := []string{"config", "--get", "remote." + remote + ".url"}
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("no %q remote found (is this a git repository?): %w", remote, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DetectRepo resolves owner/repo from the default remote of the checkout at dir
func DetectRepo(ctx context.Context, dir string) (owner, repo string, err error) {
	url, err := RemoteURL(ctx, dir, DefaultRemote)
	if err != nil {
		return "", "", err
	}
	return ParseRepoURL(url)
}
