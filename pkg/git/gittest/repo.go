package gittest

import (
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/modelops/promoter/pkg/git"
)

// Repo creates a new clone-able git repo, pre-populated with the given
// files in an initial commit. It returns the remote, the name of its
// default branch, and a cleanup func to clean up after.
func Repo(t *testing.T, files map[string]string) (git.Remote, string, func()) {
	newDir, err := ioutil.TempDir(os.TempDir(), "promoter-gittest")
	if err != nil {
		t.Fatal(err)
	}
	cleanup := func() { os.RemoveAll(newDir) }

	filesDir := filepath.Join(newDir, "files")
	gitDir := filepath.Join(newDir, "git")
	if err := os.MkdirAll(filesDir, 0777); err != nil {
		cleanup()
		t.Fatal(err)
	}

	for _, cmd := range [][]string{
		{"git", "-C", filesDir, "init"},
		{"git", "-C", filesDir, "config", "--local", "user.email", "example@example.com"},
		{"git", "-C", filesDir, "config", "--local", "user.name", "example"},
	} {
		if err := execCommand(cmd[0], cmd[1:]...); err != nil {
			cleanup()
			t.Fatal(err)
		}
	}
	if err := writeFiles(filesDir, files); err != nil {
		cleanup()
		t.Fatal(err)
	}
	if err := execCommand("git", "-C", filesDir, "add", "--all"); err != nil {
		cleanup()
		t.Fatal(err)
	}
	if err := execCommand("git", "-C", filesDir, "commit", "--allow-empty", "-m", "Initial revision"); err != nil {
		cleanup()
		t.Fatal(err)
	}
	branch := headBranch(t, filesDir)

	if err := execCommand("git", "clone", "--bare", filesDir, gitDir); err != nil {
		cleanup()
		t.Fatal(err)
	}

	return git.Remote{URL: "file://" + gitDir}, branch, cleanup
}

// RevCount counts the commits reachable from ref in the repo at dir.
func RevCount(t *testing.T, remote git.Remote, ref string) int {
	out, err := execOutput("git", "--git-dir", gitDirOf(remote), "rev-list", "--count", ref)
	if err != nil {
		t.Fatal(err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// ShowFile returns the content of path at ref in the origin repo, and
// whether it exists there.
func ShowFile(t *testing.T, remote git.Remote, ref, path string) (string, bool) {
	out, err := execOutput("git", "--git-dir", gitDirOf(remote), "show", ref+":"+path)
	if err != nil {
		return "", false
	}
	return out, true
}

// Branches lists the branch names present in the origin repo.
func Branches(t *testing.T, remote git.Remote) []string {
	out, err := execOutput("git", "--git-dir", gitDirOf(remote), "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		t.Fatal(err)
	}
	var branches []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l != "" {
			branches = append(branches, l)
		}
	}
	return branches
}

func gitDirOf(remote git.Remote) string {
	return strings.TrimPrefix(remote.URL, "file://")
}

func headBranch(t *testing.T, dir string) string {
	out, err := execOutput("git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(out)
}

func writeFiles(dir string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			return err
		}
		if err := ioutil.WriteFile(path, []byte(content), 0666); err != nil {
			return err
		}
	}
	return nil
}

func execCommand(cmd string, args ...string) error {
	c := exec.Command(cmd, args...)
	c.Stderr = ioutil.Discard
	c.Stdout = ioutil.Discard
	return c.Run()
}

func execOutput(cmd string, args ...string) (string, error) {
	c := exec.Command(cmd, args...)
	out, err := c.Output()
	return string(out), err
}
