package git

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "https", url: "https://github.com/acme/widget.git", wantOwner: "acme", wantRepo: "widget"},
		{name: "https no suffix", url: "https://github.com/acme/widget", wantOwner: "acme", wantRepo: "widget"},
		{name: "https with user", url: "https://alice@github.com/acme/widget.git", wantOwner: "acme", wantRepo: "widget"},
		{name: "scp ssh", url: "git@github.com:acme/widget.git", wantOwner: "acme", wantRepo: "widget"},
		{name: "ssh url", url: "ssh://git@github.com/acme/widget", wantOwner: "acme", wantRepo: "widget"},
		{name: "git protocol", url: "git://github.com/acme/widget.git", wantOwner: "acme", wantRepo: "widget"},
		{name: "trailing newline", url: "git@github.com:acme/widget.git\n", wantOwner: "acme", wantRepo: "widget"},
		{name: "local path", url: "/srv/git/widget.git", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestDetectRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	if err := exec.Command("git", "-C", dir, "init").Run(); err != nil {
		t.Skip("git init failed")
	}

	ctx := context.Background()
	_, _, err := DetectRepo(ctx, dir)
	assert.Error(t, err, "fresh repository has no origin")

	require.NoError(t, exec.Command("git", "-C", dir, "remote", "add", "origin", "git@github.com:acme/widget.git").Run())

	owner, repo, err := DetectRepo(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widget", repo)
}
