package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDumpUploader_Upload(t *testing.T) {
	mock := NewMockClient()
	u := NewDumpUploader(mock, "backups", "reviewlens/dumps")

	uris, err := u.Upload(context.Background(), "/tmp/database/schema.sql", "/tmp/database/dumps/bank_reviews_dump_20240101_000000.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"s3://backups/reviewlens/dumps/schema.sql",
		"s3://backups/reviewlens/dumps/bank_reviews_dump_20240101_000000.sql",
	}
	if diff := cmp.Diff(want, uris); diff != "" {
		t.Errorf("URIs mismatch (-want +got):\n%s", diff)
	}
	if got := mock.Objects["backups/reviewlens/dumps/schema.sql"]; got != "/tmp/database/schema.sql" {
		t.Errorf("unexpected local path %q", got)
	}
}

func TestDumpUploader_InvalidCredentials(t *testing.T) {
	mock := NewMockClient()
	mock.IdentityErr = errors.New("expired token")
	u := NewDumpUploader(mock, "backups", "p")

	if _, err := u.Upload(context.Background(), "/tmp/schema.sql"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := u.Prune(context.Background()); err == nil {
		t.Fatal("expected prune error")
	}
	if len(mock.Objects) != 0 || len(mock.DeletedPrefixes) != 0 {
		t.Error("nothing should be touched without credentials")
	}
}

func TestDumpUploader_UploadError(t *testing.T) {
	mock := NewMockClient()
	mock.PutErr = errors.New("access denied")
	u := NewDumpUploader(mock, "backups", "p")

	uris, err := u.Upload(context.Background(), "/tmp/a.sql", "/tmp/b.sql")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(uris) != 0 {
		t.Errorf("expected no URIs, got %v", uris)
	}
}

func TestDumpUploader_NoBucket(t *testing.T) {
	if _, err := NewDumpUploader(NewMockClient(), "", "p").Upload(context.Background(), "/tmp/a.sql"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDumpUploader_Prune(t *testing.T) {
	mock := NewMockClient()
	mock.Objects["backups/old/a.sql"] = "a"
	mock.Objects["backups/old/b.sql"] = "b"
	mock.Objects["backups/older/c.sql"] = "c"

	n, err := NewDumpUploader(mock, "backups", "old").Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 objects pruned, got %d", n)
	}
	if _, ok := mock.Objects["backups/older/c.sql"]; !ok {
		t.Error("sibling prefix must survive")
	}
	if diff := cmp.Diff([]string{"backups/old/"}, mock.DeletedPrefixes); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := NewDumpUploader(mock, "backups", "").Prune(context.Background()); err == nil {
		t.Error("expected error for empty prefix")
	}
}

func TestDumpUploader_PruneError(t *testing.T) {
	mock := NewMockClient()
	mock.DeleteErr = errors.New("slow down")
	if _, err := NewDumpUploader(mock, "backups", "p").Prune(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"dumps/schema.sql": "application/sql",
		"report.json":      "application/json",
		"report.xlsx":      "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
