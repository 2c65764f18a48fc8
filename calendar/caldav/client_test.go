package caldav_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/guilherme-santos/calmanager/calendar/caldav"
	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/sqlite"
)

const (
	principalResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/</d:href>
    <d:propstat>
      <d:prop><d:current-user-principal><d:href>/principals/me/</d:href></d:current-user-principal></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	homeSetResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/principals/me/</d:href>
    <d:propstat>
      <d:prop><c:calendar-home-set><d:href>/calendars/me/</d:href></c:calendar-home-set></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`
)

// fakeServer answers the three PROPFINDs of calendar discovery and DELETE.
type fakeServer struct {
	mu        sync.Mutex
	calendars map[string]string // path -> display name
	order     []string
	deletes   []string
	user      string
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, _, ok := r.BasicAuth(); !ok || user != s.user {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	io.Copy(io.Discard, r.Body)

	switch {
	case r.Method == "PROPFIND" && r.URL.Path == "/":
		writeMultiStatus(w, principalResponse)
	case r.Method == "PROPFIND" && r.URL.Path == "/principals/me/":
		writeMultiStatus(w, homeSetResponse)
	case r.Method == "PROPFIND" && r.URL.Path == "/calendars/me/":
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/me/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>`)
		for _, p := range s.order {
			b.WriteString(`
  <d:response>
    <d:href>` + p + `</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <d:displayname>` + s.calendars[p] + `</d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>`)
		}
		b.WriteString(`
</d:multistatus>`)
		writeMultiStatus(w, b.String())
	case r.Method == http.MethodDelete:
		if _, ok := s.calendars[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(s.calendars, r.URL.Path)
		for i, p := range s.order {
			if p == r.URL.Path {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.deletes = append(s.deletes, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeMultiStatus(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write([]byte(body))
}

func newTestClient(t *testing.T, srv *fakeServer) (*caldav.Client, *sqlite.Storage) {
	t.Helper()

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	storage, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() returned an error: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	client, err := caldav.NewClient(caldav.Config{
		URL:      ts.URL,
		Username: "me",
		Password: "secret",
	}, storage)
	if err != nil {
		t.Fatalf("NewClient() returned an error: %v", err)
	}
	return client, storage
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		user: "me",
		calendars: map[string]string{
			"/calendars/me/work/": "Work",
			"/calendars/me/home/": "",
		},
		order: []string{"/calendars/me/work/", "/calendars/me/home/"},
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := caldav.NewClient(caldav.Config{URL: "not a url"}, nil)
	if err == nil {
		t.Error("expected an invalid url to be rejected")
	}
}

func TestClient_ListAccounts(t *testing.T) {
	client, _ := newTestClient(t, newFakeServer())

	accs, err := client.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}
	if len(accs) != 2 {
		t.Fatalf("expected 2 accounts, got %d: %+v", len(accs), accs)
	}

	want := []internal.Account{
		{DisplayName: "Work", ProviderID: "/calendars/me/work/"},
		{DisplayName: "home", ProviderID: "/calendars/me/home/"},
	}
	for i, acc := range accs {
		if acc.DisplayName != want[i].DisplayName || acc.ProviderID != want[i].ProviderID {
			t.Errorf("account %d: expected %+v, got %+v", i, want[i], acc)
		}
		if acc.AccountName != "me" || acc.OwnerName != "me" || acc.Platform != internal.PlatformCalDAV {
			t.Errorf("account %d: unexpected ownership %+v", i, acc)
		}
	}
}

func TestClient_DeleteAccount(t *testing.T) {
	srv := newFakeServer()
	client, storage := newTestClient(t, srv)
	ctx := context.Background()

	accs, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}
	if err := client.DeleteAccount(ctx, accs[0].ID); err != nil {
		t.Fatalf("DeleteAccount() returned an error: %v", err)
	}
	if len(srv.deletes) != 1 || srv.deletes[0] != "/calendars/me/work/" {
		t.Errorf("unexpected deletes on the server: %v", srv.deletes)
	}
	if _, err := storage.Account(ctx, accs[0].ID); !errors.Is(err, internal.ErrAccountNotFound) {
		t.Errorf("expected the deleted calendar to leave the store, got %v", err)
	}

	left, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}
	if len(left) != 1 || left[0].ID != accs[1].ID {
		t.Errorf("expected only the home calendar to be left, got %+v", left)
	}
}

func TestClient_DeleteAccountFailureKeepsRow(t *testing.T) {
	srv := newFakeServer()
	client, storage := newTestClient(t, srv)
	ctx := context.Background()

	accs, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}

	// Someone else removed it in the meantime: the server answers 404.
	srv.mu.Lock()
	delete(srv.calendars, accs[0].ProviderID)
	srv.mu.Unlock()

	if err := client.DeleteAccount(ctx, accs[0].ID); err == nil {
		t.Fatal("expected DeleteAccount() to fail")
	}
	if _, err := storage.Account(ctx, accs[0].ID); err != nil {
		t.Errorf("expected the calendar to stay in the store, got %v", err)
	}
}

func TestClient_ListAccountsOnlyOfCurrentUser(t *testing.T) {
	client, storage := newTestClient(t, newFakeServer())
	ctx := context.Background()

	// Recorded while caldav.username was someone else.
	err := storage.ReplaceAccounts(ctx, internal.PlatformCalDAV, "former", []internal.Account{
		{DisplayName: "Old", AccountName: "former", OwnerName: "former", Platform: internal.PlatformCalDAV, ProviderID: "/calendars/former/old/"},
	})
	if err != nil {
		t.Fatalf("ReplaceAccounts() returned an error: %v", err)
	}

	accs, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}
	if len(accs) != 2 {
		t.Fatalf("expected the 2 calendars of me, got %+v", accs)
	}
	for _, acc := range accs {
		if acc.AccountName != "me" {
			t.Errorf("expected only calendars of me, got %+v", acc)
		}
		if err := client.DeleteAccount(ctx, acc.ID); err != nil {
			t.Errorf("DeleteAccount(%d) returned an error: %v", acc.ID, err)
		}
	}
}
