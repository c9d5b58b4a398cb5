package state

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gravitational/trace"

	"github.com/marketdesk/adminctl/lib"
)

// FileStore keeps the pair as a JSON document in a single file.
// NB: racy across processes, does not use file-locking.
type FileStore struct {
	filename string
}

// NewFileStore returns a store backed by filename. The parent directory is
// created on first write.
func NewFileStore(filename string) (*FileStore, error) {
	if filename == "" {
		return nil, trace.BadParameter("missing credentials file name")
	}
	return &FileStore{filename: filename}, nil
}

func (f *FileStore) GetCredentials(_ context.Context) (*Credentials, error) {
	payload, err := os.ReadFile(f.filename)
	if os.IsNotExist(err) {
		return nil, notFound()
	} else if err != nil {
		return nil, trace.ConvertSystemError(err)
	}

	var creds Credentials
	if err := lib.JSON.Unmarshal(payload, &creds); err != nil {
		return nil, trace.Wrap(err, "parsing %s", f.filename)
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, notFound()
	}
	return &creds, nil
}

func (f *FileStore) PutCredentials(_ context.Context, creds *Credentials) error {
	if err := creds.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	payload, err := lib.JSON.Marshal(creds)
	if err != nil {
		return trace.Wrap(err)
	}

	dir := filepath.Dir(f.filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return trace.ConvertSystemError(err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return trace.ConvertSystemError(err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return trace.ConvertSystemError(err)
	}
	if err := tmp.Close(); err != nil {
		return trace.ConvertSystemError(err)
	}
	return trace.ConvertSystemError(os.Rename(tmp.Name(), f.filename))
}

func (f *FileStore) ClearCredentials(_ context.Context) error {
	err := os.Remove(f.filename)
	if err != nil && !os.IsNotExist(err) {
		return trace.ConvertSystemError(err)
	}
	return nil
}
