package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDir(t *testing.T) {
	if got := ExtractDir("idx/NZ15_Huntly_TileIndex.zip"); got != "idx/NZ15_Huntly_TileIndex" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractAndFindPreferred(t *testing.T) {
	tmp := t.TempDir()
	zp := filepath.Join(tmp, "NZ15_Huntly_TileIndex.zip")
	writeZip(t, zp, map[string]string{
		"other/aaa.shp":             "x",
		"NZ15_Huntly_TileIndex.shp": "shp",
		"NZ15_Huntly_TileIndex.dbf": "dbf",
	})

	dir := ExtractDir(zp)
	files, err := Extract(zp, dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files=%v", files)
	}
	shp, err := FindShapefile(dir)
	if err != nil {
		t.Fatalf("FindShapefile: %v", err)
	}
	if shp != filepath.Join(dir, "NZ15_Huntly_TileIndex.shp") {
		t.Fatalf("shp=%q", shp)
	}
}

func TestFindShapefile_Fallback(t *testing.T) {
	tmp := t.TempDir()
	zp := filepath.Join(tmp, "idx.zip")
	writeZip(t, zp, map[string]string{"nested/tiles.SHP": "x", "readme.txt": "y"})
	dir := ExtractDir(zp)
	if _, err := Extract(zp, dir); err != nil {
		t.Fatal(err)
	}
	shp, err := FindShapefile(dir)
	if err != nil || filepath.Base(shp) != "tiles.SHP" {
		t.Fatalf("shp=%q err=%v", shp, err)
	}
}

func TestFindShapefile_None(t *testing.T) {
	if _, err := FindShapefile(t.TempDir()); !errors.Is(err, ErrNoShapefile) {
		t.Fatalf("err=%v want ErrNoShapefile", err)
	}
}

func TestExtract_RejectsZipSlip(t *testing.T) {
	tmp := t.TempDir()
	zp := filepath.Join(tmp, "evil.zip")
	writeZip(t, zp, map[string]string{"../escape.txt": "boom"})

	_, err := Extract(zp, filepath.Join(tmp, "out"))
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("err=%v want ErrUnsafePath", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("entry escaped the extraction directory")
	}
}
