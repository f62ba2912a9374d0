package trico

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trico-scraper/internal/concurrency"
	"trico-scraper/internal/httpx"
)

const landingPage = `<html><body><form action="search.cgi">
<input type="checkbox" name="smstr" value="Fall_2018">
<input type="checkbox" name="smstr" value="Spring_2019">
<input type="checkbox" name="campus" value="Bryn Mawr">
<input type="checkbox" name="campus" value="Haverford">
<input type="checkbox" name="campus" value="Swarthmore">
<select name="dept"><option value="CMSC">Computer Science</option><option value="MATH">Mathematics</option></select>
<select name="meetday"><option value=".">Any</option><option value="MWF">MWF</option><option>TTh</option></select>
<select name="meettime"><option value="morning">Morning</option><option value="afternoon">Afternoon</option></select>
</form></body></html>`

// fixtureSite imitates the course guide: a form at /form, search results at
// /search.cgi (count page without run_tot, result pages with it) and detail pages
// at /detail.cgi?id=N.
type fixtureSite struct {
	t *testing.T

	total    int
	pageSize int
	// details[id] lists the rows of detail page id.
	details map[string][][]string
	// detailDelay[id] holds a detail response back to shuffle completion order.
	detailDelay map[string]time.Duration
	// brokenPages lists run_tot values served without a result table.
	brokenPages map[int]bool

	mu       sync.Mutex
	requests []*http.Request

	server *httptest.Server
}

func newFixtureSite(t *testing.T) *fixtureSite {
	t.Helper()
	f := &fixtureSite{
		t:           t,
		pageSize:    DefaultPageSize,
		details:     map[string][][]string{},
		detailDelay: map[string]time.Duration{},
		brokenPages: map[int]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		fmt.Fprint(w, landingPage)
	})
	mux.HandleFunc("/search.cgi", f.serveSearch)
	mux.HandleFunc("/detail.cgi", f.serveDetail)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixtureSite) endpoints() Endpoints {
	return Endpoints{
		SearchURL:  f.server.URL + "/search.cgi",
		LinkPrefix: f.server.URL + "/",
		InfoURL:    f.server.URL + "/form",
	}
}

func (f *fixtureSite) scraper(workers int, policy concurrency.FailurePolicy) *Scraper {
	f.t.Helper()
	s, err := New(Options{
		Endpoints: f.endpoints(),
		HTTP:      httpClientOptions(),
		Workers:   workers,
		Policy:    policy,
		PageSize:  f.pageSize,
	})
	require.NoError(f.t, err)
	f.t.Cleanup(s.Close)
	return s
}

func httpClientOptions() httpx.ClientOptions {
	return httpx.ClientOptions{Timeout: 5 * time.Second}
}

func (f *fixtureSite) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Clone(context.Background()))
}

// requestsTo returns the recorded requests whose path is path.
func (f *fixtureSite) requestsTo(path string) []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*http.Request
	for _, r := range f.requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// pageOffsets returns the run_tot values requested so far, sorted ascending.
func (f *fixtureSite) pageOffsets() []int {
	var offsets []int
	for _, r := range f.requestsTo("/search.cgi") {
		if v := r.URL.Query().Get("run_tot"); v != "" {
			n, err := strconv.Atoi(v)
			require.NoError(f.t, err)
			offsets = append(offsets, n)
		}
	}
	sort.Ints(offsets)
	return offsets
}

func (f *fixtureSite) serveSearch(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	runTot := r.URL.Query().Get("run_tot")
	if runTot == "" {
		if f.total == 0 {
			fmt.Fprint(w, `<html><body><p>No courses found matching your criteria.</p></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><font size="2"><b>Courses found: %d</b></font></body></html>`, f.total)
		return
	}

	offset, err := strconv.Atoi(runTot)
	if err != nil {
		http.Error(w, "bad run_tot", http.StatusBadRequest)
		return
	}
	if f.brokenPages[offset] {
		fmt.Fprint(w, `<html><body><p>temporarily unavailable</p></body></html>`)
		return
	}

	var b strings.Builder
	b.WriteString(`<html><body><table width="100%" border="2">`)
	for i := offset; i < offset+f.pageSize && i < f.total; i++ {
		fmt.Fprintf(&b, `<tr><td><a href="detail.cgi?id=%d">Course %d</a></td></tr>`, i, i)
	}
	b.WriteString(`</table></body></html>`)
	fmt.Fprint(w, b.String())
}

func (f *fixtureSite) serveDetail(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	id := r.URL.Query().Get("id")
	rows, ok := f.details[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if d := f.detailDelay[id]; d > 0 {
		time.Sleep(d)
	}

	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + cell + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`</table><table><tr><td>ignored</td></tr></table></body></html>`)
	fmt.Fprint(w, b.String())
}
