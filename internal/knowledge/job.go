package knowledge

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

// Source kinds accepted by NewSource.
const (
	KindBuiltin = "builtin"
	KindFile    = "file"
	KindGCS     = "gcs"
	KindNotion  = "notion"
)

// ValidKind reports whether kind names a known source.
func ValidKind(kind string) bool {
	switch kind {
	case KindBuiltin, KindFile, KindGCS, KindNotion:
		return true
	}
	return false
}

// SourceOptions carries the clients remote sources need.
type SourceOptions struct {
	Notion NotionQuerier
	GCS    ObjectReader
	// NotionDatabaseID is used when a notion job names no database.
	NotionDatabaseID string
}

// NewSource builds the source of the given kind. target is the file path,
// gs:// URI or Notion database id.
func NewSource(kind, target string, opts SourceOptions) (Source, error) {
	switch kind {
	case KindBuiltin:
		return BuiltinSource{}, nil
	case KindFile:
		if target == "" {
			return nil, fmt.Errorf("NewSource: file source needs a path")
		}
		return FileSource{Path: target}, nil
	case KindGCS:
		if _, _, err := ParseGCSURI(target); err != nil {
			return nil, fmt.Errorf("NewSource: %w", err)
		}
		return GCSSource{URI: target, Reader: opts.GCS}, nil
	case KindNotion:
		db := target
		if db == "" {
			db = opts.NotionDatabaseID
		}
		if opts.Notion == nil || db == "" {
			return nil, fmt.Errorf("NewSource: notion source is not configured")
		}
		return NotionSource{DatabaseID: db, Client: opts.Notion}, nil
	default:
		return nil, fmt.Errorf("NewSource: unknown source %q", kind)
	}
}

// JobHandler returns a queue handler that syncs the job's source and records
// the result counts on the job.
func (s *Syncer) JobHandler(opts SourceOptions) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.KnowledgeSyncJob) error {
		src, err := NewSource(job.Source, job.Target, opts)
		if err != nil {
			return err
		}
		res, err := s.Sync(ctx, src)
		if err != nil {
			return err
		}
		job.Loaded, job.Imported, job.Skipped = res.Loaded, res.Imported, res.Skipped
		return nil
	}
}
