package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	for i, src := range []string{"builtin", "gcs", "notion", "gcs"} {
		job := &jobs.KnowledgeSyncJob{
			JobID:     string(rune('a' + i)),
			Source:    src,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}
	if err := s.SaveJob(ctx, &jobs.KnowledgeSyncJob{}); err == nil {
		t.Error("expected error for a job without id")
	}

	tests := []struct {
		name    string
		filter  jobs.JobFilter
		wantIDs []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"d", "c", "b", "a"}},
		{"by source", jobs.JobFilter{Source: "gcs"}, []string{"d", "b"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"d", "c"}},
		{"offset", jobs.JobFilter{Offset: 3}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 9}, []string{}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len(ListJobs()) = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].JobID != id {
					t.Errorf("ListJobs()[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}

	if err := s.UpdateJobStatus(ctx, "b", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	job, _ := s.GetJob(ctx, "b")
	if job.Status != jobs.JobStatusFailed || job.Error != "boom" {
		t.Errorf("GetJob() = %+v", job)
	}

	job.Source = "mutated"
	again, _ := s.GetJob(ctx, "b")
	if again.Source != "gcs" {
		t.Error("GetJob() returned a shared pointer")
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("UpdateJobStatus(missing) error = %v", err)
	}
}
