package storage

import (
	"bytes"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SnapshotArchive stores captured camera frames in a Supabase Storage bucket
// so a turn's visual context can be reviewed after the fact. The conversation
// itself is never persisted; only snapshots are.
type SnapshotArchive struct {
	client *supabase.Client
	bucket string
}

// NewSnapshotArchive constructs the archive client. bucket defaults to
// "snapshots" when empty.
func NewSnapshotArchive(url, serviceRoleKey, bucket string) (*SnapshotArchive, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create Supabase client: %w", err)
	}
	if bucket == "" {
		bucket = "snapshots"
	}
	return &SnapshotArchive{client: client, bucket: bucket}, nil
}

// SaveSnapshot uploads one JPEG under the given object key.
func (a *SnapshotArchive) SaveSnapshot(key string, jpeg []byte) error {
	if _, err := a.client.Storage.UploadFile(a.bucket, key, bytes.NewReader(jpeg)); err != nil {
		return fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	return nil
}
