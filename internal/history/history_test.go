package history

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "envdiff.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)

	runs := []Run{
		{GeneratedOn: "2026-08-01 10:00:00", Title: "first", BaseImage: "alpine:latest",
			ContainerTool: "podman", ConfigPath: "a.yaml", ReportPath: "a.json",
			OperationCount: 2, ChangedPaths: 5},
		{GeneratedOn: "2026-08-02 10:00:00", Title: "second", BaseImage: "debian:12",
			ContainerTool: "docker", ConfigPath: "b.yaml", ReportPath: "b.json",
			OperationCount: 4, ChangedPaths: 1},
	}
	for _, r := range runs {
		if err := store.Record(r); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	got, err := store.List(10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %d runs, want 2", len(got))
	}
	// Newest first.
	if got[0].Title != "second" || got[1].Title != "first" {
		t.Errorf("order = %q, %q", got[0].Title, got[1].Title)
	}
	if got[0].OperationCount != 4 || got[0].ChangedPaths != 1 {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.Record(Run{BaseImage: "x", ContainerTool: "podman"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.List(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("List(3) = %d runs", len(got))
	}
}

func TestListEmptyStore(t *testing.T) {
	store := openTestStore(t)
	got, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestStatsByImage(t *testing.T) {
	store := openTestStore(t)
	seed := []Run{
		{GeneratedOn: "2026-08-01 10:00:00", BaseImage: "alpine:latest", ContainerTool: "podman", ChangedPaths: 2},
		{GeneratedOn: "2026-08-03 10:00:00", BaseImage: "alpine:latest", ContainerTool: "podman", ChangedPaths: 6},
		{GeneratedOn: "2026-08-02 10:00:00", BaseImage: "debian:12", ContainerTool: "docker", ChangedPaths: 9},
	}
	for _, r := range seed {
		if err := store.Record(r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.StatsByImage()
	if err != nil {
		t.Fatalf("StatsByImage() error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("StatsByImage() = %d images, want 2", len(stats))
	}
	// Most-analyzed image first.
	if stats[0].BaseImage != "alpine:latest" || stats[0].Runs != 2 {
		t.Errorf("stats[0] = %+v", stats[0])
	}
	if stats[0].AvgChanged != 4.0 || stats[0].MaxChanged != 6 {
		t.Errorf("alpine churn = avg %v max %d", stats[0].AvgChanged, stats[0].MaxChanged)
	}
	if stats[0].LastGenerated != "2026-08-03 10:00:00" {
		t.Errorf("LastGenerated = %q", stats[0].LastGenerated)
	}
	if stats[1].BaseImage != "debian:12" || stats[1].Runs != 1 {
		t.Errorf("stats[1] = %+v", stats[1])
	}
}
