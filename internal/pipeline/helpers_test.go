package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geocode-etl/internal/etlerr"
	"github.com/sells-group/geocode-etl/pkg/geocode"
)

// newSourceDB creates a file-backed SQLite ADDRESSES table holding addrs in order.
func newSourceDB(t *testing.T, addrs ...string) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE ADDRESSES (ID INTEGER PRIMARY KEY, STREET_ADDRESS TEXT, ZIP TEXT)`)
	require.NoError(t, err)
	for i, a := range addrs {
		_, err = conn.Exec(`INSERT INTO ADDRESSES (ID, STREET_ADDRESS, ZIP) VALUES (?, ?, ?)`, i+1, a, "19107")
		require.NoError(t, err)
	}
	return conn
}

// addressRows builds source rows with a single STREET_ADDRESS column.
func addressRows(addrs ...string) []Row {
	rows := make([]Row, len(addrs))
	for i, a := range addrs {
		rows[i] = Row{Columns: []string{"OBJECTID", SourceAddressColumn}, Values: []any{int64(i + 1), a}}
	}
	return rows
}

// stubGeocoder answers from a fixed table and records every call.
type stubGeocoder struct {
	coords map[string]geocode.Coordinate
	fail   map[string]error

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    func(addr string)
}

func (s *stubGeocoder) Geocode(_ context.Context, addr string) (geocode.Coordinate, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, addr)
	s.mu.Unlock()

	if s.delay != nil {
		s.delay(addr)
	}
	if err, ok := s.fail[addr]; ok {
		return geocode.Coordinate{}, err
	}
	c, ok := s.coords[addr]
	if !ok {
		return geocode.Coordinate{}, etlerr.New(etlerr.ErrGeocodingFormat, "stub: no features")
	}
	return c, nil
}

func (s *stubGeocoder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// marketStreet is the three-row fixture used by the end-to-end scenarios.
var marketStreet = map[string]geocode.Coordinate{
	"100 Market St": {X: -75.1, Y: 39.9},
	"200 Market St": {X: -75.2, Y: 39.95},
	"300 Market St": {X: -75.3, Y: 40.0},
}

// newAISServer serves AIS-shaped responses for the addresses in coords and an
// empty feature list for anything else.
func newAISServer(t *testing.T, coords map[string]geocode.Coordinate, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		addr := strings.TrimPrefix(r.URL.Path, "/search/")
		w.Header().Set("Content-Type", "application/json")
		c, ok := coords[addr]
		if !ok {
			_, _ = io.WriteString(w, `{"features": []}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"features": [{"geometry": {"type": "Point", "coordinates": [%v, %v]}}]}`, c.X, c.Y)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// failOnTransport fails round trips whose path contains needle.
type failOnTransport struct {
	base   http.RoundTripper
	needle string
}

func (f *failOnTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.Contains(req.URL.Path, f.needle) {
		return nil, errors.New("connection reset by peer")
	}
	return f.base.RoundTrip(req)
}
