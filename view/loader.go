package view

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
)

// Source is the text of a template together with a freshness token. The
// token is opaque to the engine and only handed back to Loader.Fresh.
type Source struct {
	Text  string
	Token string
}

// Loader resolves template names to source text.
type Loader interface {
	// Load returns the current source of a template. Missing templates are
	// reported with an error wrapping ErrNotFound.
	Load(ctx context.Context, name string) (Source, error)

	// Fresh reports whether token still describes the current source.
	Fresh(ctx context.Context, name, token string) (bool, error)
}

// FSLoader loads templates from a file system. The freshness token is
// derived from the modification time and size of the file.
type FSLoader struct {
	FS fs.FS
}

// NewFSLoader returns a loader reading from fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{FS: fsys}
}

// Load reads the named file.
func (l *FSLoader) Load(_ context.Context, name string) (Source, error) {
	name, err := cleanName(name)
	if err != nil {
		return Source{}, err
	}

	info, err := fs.Stat(l.FS, name)
	if err != nil {
		return Source{}, fsError(name, err)
	}

	data, err := fs.ReadFile(l.FS, name)
	if err != nil {
		return Source{}, fsError(name, err)
	}

	return Source{Text: string(data), Token: fileToken(info)}, nil
}

// Fresh stats the named file and compares its token.
func (l *FSLoader) Fresh(_ context.Context, name, token string) (bool, error) {
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}

	info, err := fs.Stat(l.FS, name)
	if err != nil {
		return false, fsError(name, err)
	}

	return fileToken(info) == token, nil
}

func fileToken(info fs.FileInfo) string {
	return strconv.FormatInt(info.ModTime().UnixNano(), 36) + "-" + strconv.FormatInt(info.Size(), 36)
}

func fsError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// cleanName turns a template name into a rooted-free slash path and rejects
// names escaping the loader root.
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || !fs.ValidPath(cleaned) {
		return "", fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return cleaned, nil
}
