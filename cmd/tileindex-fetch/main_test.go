package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const catalogBody = `{"Datasets":[
 {"Dataset":{"name":"Huntly, Waikato, New Zealand 2015-2019","alternateName":"NZ15_Huntly","additionalProperty":[]}},
 {"Dataset":{"name":"Waikato, New Zealand 2021","alternateName":"NZ21_Waikato","additionalProperty":[]}}
]}`

func fakeUpstream(t *testing.T, body string, missing string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/API/otCatalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/pc-bulk/", func(w http.ResponseWriter, r *http.Request) {
		if missing != "" && strings.Contains(r.URL.Path, missing) {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("PK\x03\x04"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_FetchesEveryTileIndex(t *testing.T) {
	srv := fakeUpstream(t, catalogBody, "")
	dir := t.TempDir()
	var stdout bytes.Buffer

	code := run([]string{"-catalog", srv.URL + "/API/otCatalog", "-bulk", srv.URL + "/pc-bulk/", "-dir", dir, "-cache", "none"},
		&stdout, io.Discard)
	if code != 0 {
		t.Fatalf("exit=%d\n%s", code, stdout.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "Number of Datasets = 2") || !strings.Contains(out, "NZ15_Huntly\nNZ21_Waikato") {
		t.Fatalf("report:\n%s", out)
	}
	if !strings.Contains(out, srv.URL+"/pc-bulk/NZ21_Waikato/NZ21_Waikato_TileIndex.zip") {
		t.Fatalf("tile index url missing:\n%s", out)
	}
	for _, id := range []string{"NZ15_Huntly", "NZ21_Waikato"} {
		if _, err := os.Stat(filepath.Join(dir, id+"_TileIndex.zip")); err != nil {
			t.Fatalf("missing archive for %s: %v", id, err)
		}
	}
}

func TestRun_StopsOnFirstFailure(t *testing.T) {
	srv := fakeUpstream(t, catalogBody, "NZ15_Huntly")
	dir := t.TempDir()

	code := run([]string{"-catalog", srv.URL + "/API/otCatalog", "-bulk", srv.URL + "/pc-bulk", "-dir", dir},
		io.Discard, io.Discard)
	if code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "NZ21_Waikato_TileIndex.zip")); !os.IsNotExist(err) {
		t.Fatal("second archive must not be fetched after a failure")
	}
}

func TestRun_ZeroDatasets(t *testing.T) {
	srv := fakeUpstream(t, `{"Datasets":[]}`, "")
	var stdout bytes.Buffer
	code := run([]string{"-catalog", srv.URL + "/API/otCatalog", "-bulk", srv.URL + "/pc-bulk/", "-dir", t.TempDir()},
		&stdout, io.Discard)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if !strings.Contains(stdout.String(), "Number of Datasets = 0") || strings.Contains(stdout.String(), "Downloaded") {
		t.Fatalf("report:\n%s", stdout.String())
	}
}

func TestRun_CatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	if code := run([]string{"-catalog", srv.URL, "-dir", t.TempDir()}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
}

func TestRun_DefaultsToAllOfNewZealand(t *testing.T) {
	for _, k := range []string{"AOI_MINLON", "AOI_MINLAT", "AOI_MAXLON", "AOI_MAXLAT"} {
		t.Setenv(k, "")
	}
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"Datasets":[]}`))
	}))
	defer srv.Close()

	if code := run([]string{"-catalog", srv.URL, "-dir", t.TempDir()}, io.Discard, io.Discard); code != 0 {
		t.Fatalf("exit=%d", code)
	}
	want := map[string]string{"minx": "166", "miny": "-48", "maxx": "179", "maxy": "-34"}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("%s=%q want %q (query %v)", k, got.Get(k), v, got)
		}
	}
}
