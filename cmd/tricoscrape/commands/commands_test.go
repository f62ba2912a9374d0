package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"trico-scraper/internal/trico"
)

const formPage = `<html><body><form>
<input name="smstr" value="Fall_2018"><input name="campus" value="Haverford"><input name="campus" value="Swarthmore">
<select name="dept"><option value="CMSC">CS</option></select>
<select name="meetday"><option value=".">Any</option></select>
<select name="meettime"><option value="morning">AM</option></select>
</form></body></html>`

// newSite serves a two-course catalog and points the TRICO_* variables at it.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	server, _ := newRecordingSite(t)
	return server
}

// newRecordingSite is newSite plus the query of every search request, in arrival order.
func newRecordingSite(t *testing.T) (*httptest.Server, func() []url.Values) {
	t.Helper()

	var (
		mu      sync.Mutex
		queries []url.Values
	)

	details := map[string]string{
		"1": `<table><tr><td>Title</td><td>Intro to X</td></tr><tr><td>Instructor</td><td>A. Smith</td></tr></table>`,
		"2": `<table><tr><td>Title</td><td>Intro to Y</td></tr><tr><td>Instructor</td><td>B. Jones</td></tr></table>`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formPage)
	})
	mux.HandleFunc("/search.cgi", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query())
		mu.Unlock()
		if r.URL.Query().Get("run_tot") == "" {
			fmt.Fprint(w, `<font><b>Courses found: 2</b></font>`)
			return
		}
		fmt.Fprint(w, `<table width="100%" border="2"><tr><td><a href="detail.cgi?id=1">X</a></td></tr><tr><td><a href="detail.cgi?id=2">Y</a></td></tr></table>`)
	})
	mux.HandleFunc("/detail.cgi", func(w http.ResponseWriter, r *http.Request) {
		page, ok := details[r.URL.Query().Get("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("TRICO_URL", server.URL+"/search.cgi")
	t.Setenv("TRICO_INFO_URL", server.URL+"/form")
	t.Setenv("TRICO_PREFIX", server.URL+"/")
	t.Setenv("TRICO_WORKERS", "2")
	t.Setenv("LOG_LEVEL", "debug")
	return server, func() []url.Values {
		mu.Lock()
		defer mu.Unlock()
		return append([]url.Values(nil), queries...)
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestInfo(t *testing.T) {
	newSite(t)

	stdout, _, err := run(t, "info")
	require.NoError(t, err)

	var md trico.SiteMetadata
	require.NoError(t, json.Unmarshal([]byte(stdout), &md))
	require.Equal(t, []string{"Fall_2018"}, md.Semesters)
	require.Equal(t, []string{"Haverford", "Swarthmore"}, md.Campuses)
}

func TestSearchJSONToStdout(t *testing.T) {
	newSite(t)

	stdout, stderr, err := run(t, "search", "--semester", "Fall_2018", "--campus", "Swarthmore")
	require.NoError(t, err)
	require.Contains(t, stderr, "search finished")

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Equal(t, []map[string]string{
		{"Title": "Intro to X", "Instructor": "A. Smith"},
		{"Title": "Intro to Y", "Instructor": "B. Jones"},
	}, got)
	// key order is kept in the output
	require.Less(t, strings.Index(stdout, `"Title"`), strings.Index(stdout, `"Instructor"`))
}

func TestSearchFreezeFlag(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		expected string
	}{
		{"set", []string{"--srch-frz", "Y"}, "Y"},
		{"unset", nil, "."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, queries := newRecordingSite(t)

			args := append([]string{"search", "--semester", "Fall_2018"}, tc.args...)
			_, _, err := run(t, args...)
			require.NoError(t, err)

			sent := queries()
			require.NotEmpty(t, sent)
			for _, q := range sent {
				require.Equal(t, []string{tc.expected}, q["srch_frz"])
			}
		})
	}
}

func TestSearchCSVFile(t *testing.T) {
	newSite(t)
	outPath := filepath.Join(t.TempDir(), "out", "courses.csv")

	_, _, err := run(t, "search", "--dept", "CMSC", "--out", outPath, "--columns", "Instructor")
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "Instructor\r\nA. Smith\r\nB. Jones\r\n", string(content))
}

func TestSearchBenchmark(t *testing.T) {
	newSite(t)

	_, stderr, err := run(t, "search", "--benchmark", "--format", "xml")
	require.NoError(t, err)
	require.Contains(t, stderr, "single")
	require.Contains(t, stderr, "pool")
}

func TestSearchMissingDetailPages(t *testing.T) {
	server := newSite(t)
	// every detail link 404s once the prefix points at a missing directory
	t.Setenv("TRICO_PREFIX", server.URL+"/missing/")

	_, _, err := run(t, "search", "--policy", "collect-partial")
	require.Error(t, err, "every detail page is missing, so nothing is left to keep")

	_, _, err = run(t, "search", "--policy", "fail-fast")
	require.Error(t, err)
}

func TestSearchFlagErrors(t *testing.T) {
	newSite(t)

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"sftp without out", []string{"search", "--sftp"}, "--sftp needs --out"},
		{"bad format", []string{"search", "--format", "pdf"}, "unknown format"},
		{"bad policy", []string{"search", "--policy", "retry-forever"}, "unknown failure policy"},
		{"bad log level", []string{"--log-level", "loud", "info"}, "log level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfigFile(t *testing.T) {
	server := newSite(t)
	t.Setenv("TRICO_INFO_URL", server.URL+"/nowhere")

	path := filepath.Join(t.TempDir(), "trico.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trico_info_url: "+server.URL+"/form\n"), 0o600))

	_, _, err := run(t, "info")
	require.Error(t, err, "env points the form at a missing page")

	stdout, _, err := run(t, "--config", path, "info")
	require.NoError(t, err)
	require.Contains(t, stdout, "Fall_2018")
}
