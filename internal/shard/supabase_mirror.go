package shard

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	supabase "github.com/supabase-community/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseMirror stores shard artifacts in a Supabase Storage bucket so
// that API replicas not co-located with the operator's local disk can still
// load them (C3/C5's "optional remote registry").
type SupabaseMirror struct {
	client *supabase.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewSupabaseMirror creates a mirror backed by the given bucket. url and
// key are the project URL and service-role key.
func NewSupabaseMirror(url, key, bucket, prefix string) (*SupabaseMirror, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("shard: creating supabase client: %w", err)
	}
	return &SupabaseMirror{
		client: client,
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: slog.Default().With("component", "shard.supabase_mirror"),
	}, nil
}

func (m *SupabaseMirror) objectPath(shardIndex int) string {
	return fmt.Sprintf("%s/shard-%05d.json", m.prefix, shardIndex)
}

// MirrorArtifact uploads a single shard artifact to the bucket, overwriting
// any existing object at that path.
func (m *SupabaseMirror) MirrorArtifact(ctx context.Context, a *Artifact) error {
	var buf bytes.Buffer
	if err := a.WriteJSON(&buf); err != nil {
		return fmt.Errorf("shard: encoding artifact %d for mirror: %w", a.ShardIndex, err)
	}

	path := m.objectPath(a.ShardIndex)
	_, err := m.client.Storage.UploadFile(m.bucket, path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("shard: uploading %s to supabase storage: %w", path, err)
	}
	m.logger.Info("mirrored shard artifact", "shard_index", a.ShardIndex, "path", path)
	return nil
}

// MirrorAll uploads every artifact, stopping at the first failure.
func (m *SupabaseMirror) MirrorAll(ctx context.Context, artifacts []*Artifact) error {
	for _, a := range artifacts {
		if err := m.MirrorArtifact(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// ListRemote lists every shard object under the mirror's prefix, for C5's
// startup load to merge against the local directory scan.
func (m *SupabaseMirror) ListRemote(ctx context.Context) ([]string, error) {
	files, err := m.client.Storage.ListFiles(m.bucket, m.prefix, storage_go.FileSearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("shard: listing supabase storage objects under %s: %w", m.prefix, err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, m.prefix+"/"+f.Name)
	}
	return paths, nil
}

// DownloadArtifact fetches and decodes one shard artifact from the bucket.
func (m *SupabaseMirror) DownloadArtifact(ctx context.Context, objectPath string) (*Artifact, error) {
	data, err := m.client.Storage.DownloadFile(m.bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("shard: downloading %s from supabase storage: %w", objectPath, err)
	}
	return ReadArtifact(bytes.NewReader(data))
}
