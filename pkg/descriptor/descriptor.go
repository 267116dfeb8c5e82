package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Tree is a built deployment descriptor: a directory of declarative
// resource definitions for one model version, produced by the build
// stage. It is treated as immutable; the engine only reads it.
type Tree struct {
	root string
}

// NewTree wraps the directory at root. It fails if the directory does
// not exist or is empty, since an empty descriptor is never a valid
// build product.
func NewTree(root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "reading descriptor")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("descriptor %s is not a directory", root)
	}
	t := &Tree{root: root}
	files, err := t.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("descriptor %s contains no files", root)
	}
	return t, nil
}

func (t *Tree) Root() string {
	return t.root
}

// Files returns the relative paths of all regular files in the
// descriptor, sorted.
func (t *Tree) Files() ([]string, error) {
	var files []string
	err := filepath.Walk(t.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking descriptor")
	}
	sort.Strings(files)
	return files, nil
}

// Digest computes a content hash over the descriptor's paths and file
// bytes, for correlating log lines and change-request bodies with a
// particular build product. Two descriptors with identical files have
// identical digests, whenever they were produced.
func (t *Tree) Digest() (string, error) {
	files, err := t.Files()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, f := range files {
		io.WriteString(h, f)
		h.Write([]byte{0})
		b, err := ioutil.ReadFile(filepath.Join(t.root, filepath.FromSlash(f)))
		if err != nil {
			return "", errors.Wrap(err, "hashing descriptor")
		}
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SyncTo makes dst contain exactly the descriptor's files: existing
// content under dst is removed first, so stale resource definitions
// from a previous version do not linger.
func (t *Tree) SyncTo(dst string) error {
	if strings.TrimSpace(dst) == "" || dst == string(os.PathSeparator) {
		return errors.New("refusing to sync descriptor to empty path")
	}
	if err := os.RemoveAll(dst); err != nil {
		return errors.Wrap(err, "clearing environment subtree")
	}
	files, err := t.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		src := filepath.Join(t.root, filepath.FromSlash(f))
		target := filepath.Join(dst, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
			return err
		}
		if err := copyFile(src, target); err != nil {
			return errors.Wrapf(err, "copying %s", f)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	b, err := ioutil.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(dst, b, info.Mode().Perm())
}
