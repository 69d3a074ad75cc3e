package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsAllowedPhoto(t *testing.T) {
	allowed := []string{"a.png", "b.jpg", "c.JPEG", "d.gif", "e.WebP"}
	for _, name := range allowed {
		if !IsAllowedPhoto(name) {
			t.Fatalf("expected %q to be allowed", name)
		}
	}
	denied := []string{"a.exe", "b.mp4", "c", "d.png.sh", "e.svg"}
	for _, name := range denied {
		if IsAllowedPhoto(name) {
			t.Fatalf("expected %q to be denied", name)
		}
	}
}

func TestIsAllowedVideo(t *testing.T) {
	for _, name := range []string{"clip.mp4", "clip.WEBM", "clip.ogg", "clip.mov"} {
		if !IsAllowedVideo(name) {
			t.Fatalf("expected %q to be allowed", name)
		}
	}
	for _, name := range []string{"clip.avi", "clip.png", "clip"} {
		if IsAllowedVideo(name) {
			t.Fatalf("expected %q to be denied", name)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"photo.png", "photo.png"},
		{"../../../etc/passwd", "passwd"},
		{"..\\..\\evil.png", "evil.png"},
		{"my photo (1).jpg", "my_photo__1_.jpg"},
		{"...", "upload"},
		{"", "upload"},
		{"café.png", "caf_.png"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.input); got != tc.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNextAvailableName(t *testing.T) {
	taken := map[string]bool{}
	exists := func(name string) bool { return taken[name] }

	first := NextAvailableName(exists, "pic.png")
	if first != "pic.png" {
		t.Fatalf("expected first name unchanged, got %q", first)
	}
	taken[first] = true

	second := NextAvailableName(exists, "pic.png")
	if second != "pic_1.png" {
		t.Fatalf("expected pic_1.png, got %q", second)
	}
	taken[second] = true

	third := NextAvailableName(exists, "pic.png")
	if third != "pic_2.png" {
		t.Fatalf("expected pic_2.png, got %q", third)
	}
}

func TestStoreSaveResolvesCollisions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first, err := store.Save("pic.png", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	if first != "pic.png" {
		t.Fatalf("expected pic.png, got %q", first)
	}

	second, err := store.Save("pic.png", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if second != "pic_1.png" {
		t.Fatalf("expected pic_1.png, got %q", second)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pic.png"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("first file overwritten: %q", data)
	}
}

func TestStoreRemoveMissingIsNotError(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Remove("nope.png"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}
