package sparkify

import (
	"path/filepath"
	"testing"
)

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "b", "2.json"), "{}")
	writeTestFile(t, filepath.Join(root, "a", "c", "1.json"), "{}")
	writeTestFile(t, filepath.Join(root, "a", "3.json"), "{}")
	writeTestFile(t, filepath.Join(root, "a", "4.txt"), "")

	files, err := CollectFiles(root, ".json")
	if err != nil {
		t.Fatal(err)
	}

	expect := []string{
		filepath.Join(root, "a", "3.json"),
		filepath.Join(root, "a", "c", "1.json"),
		filepath.Join(root, "b", "2.json"),
	}

	if len(files) != len(expect) {
		t.Fatalf("expected %v, but %v", expect, files)
	}

	for i := range expect {
		if files[i] != expect[i] {
			t.Errorf("files[%d] should be %s, but %s", i, expect[i], files[i])
		}

		if !filepath.IsAbs(files[i]) {
			t.Errorf("files[%d] should be absolute: %s", i, files[i])
		}
	}
}

func TestCollectFiles_missingRoot(t *testing.T) {
	t.Parallel()

	files, err := CollectFiles(filepath.Join(t.TempDir(), "missing"), ".json")
	if err != nil {
		t.Fatal(err)
	}

	if files == nil || len(files) != 0 {
		t.Errorf("expected an empty list, but %v", files)
	}
}
