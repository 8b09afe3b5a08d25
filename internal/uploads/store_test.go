package uploads

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Save(strings.NewReader("hello"), "notes.txt")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got.Size != 5 || got.OriginalName != "notes.txt" {
		t.Errorf("Save() = %+v", got)
	}
	if !strings.HasPrefix(got.Name, "1700000000000-") || !strings.HasSuffix(got.Name, "-notes.txt") {
		t.Errorf("storage name = %q", got.Name)
	}

	f, err := s.Open(got.Name)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveSameNameTwice(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Save(strings.NewReader("a"), "x.png")
	b, _ := s.Save(strings.NewReader("b"), "x.png")
	if a.Name == b.Name {
		t.Errorf("two saves in the same millisecond got the same name %q", a.Name)
	}
}

func TestSaveFailureLeavesNothing(t *testing.T) {
	s := newTestStore(t)

	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("client went away")))
	if _, err := s.Save(r, "big.bin"); err == nil {
		t.Fatal("Save() error = nil, want failure")
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries after failed save", len(entries))
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`} {
		if _, err := s.Path(name); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Path(%q) error = %v, want invalid input", name, err)
		}
	}
}

func TestOpenMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Open("nope.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Open() error = %v, want not found", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	f, _ := s.Save(strings.NewReader("x"), "a.txt")

	if err := s.Remove(f.Name); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(f.Name); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	s := newTestStore(t)
	saved, _ := s.Save(strings.NewReader("x"), "a.txt")
	if err := os.WriteFile(filepath.Join(s.Dir(), "in-flight.bin.tmp"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 1 || files[0].Name != saved.Name {
		t.Errorf("List() = %+v, want only %s", files, saved.Name)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	old, _ := s.Save(strings.NewReader("1"), "old.txt")
	recent, _ := s.Save(strings.NewReader("2"), "new.txt")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(s.Dir(), old.Name), past, past); err != nil {
		t.Fatal(err)
	}

	files, _ := s.List()
	if len(files) != 2 || files[0].Name != recent.Name {
		t.Errorf("List() order = %+v", files)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my holiday.png", "my_holiday.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\report.pdf`, "report.pdf"},
		{"résumé.doc", "résumé.doc"},
		{"...", "file"},
		{"", "file"},
		{"a$b%c.txt", "abc.txt"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	got := sanitize(strings.Repeat("a", 200) + ".jpeg")
	if len(got) > maxNameLength {
		t.Errorf("len = %d, want <= %d", len(got), maxNameLength)
	}
	if !strings.HasSuffix(got, ".jpeg") {
		t.Errorf("extension lost: %q", got)
	}
}

func TestUsage(t *testing.T) {
	s := newTestStore(t)
	u, err := s.Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if u.Total <= 0 || u.Used < 0 || u.Used > u.Total {
		t.Errorf("Usage() = %+v", u)
	}
}
