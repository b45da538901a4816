package httpadmit

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/yosida95/uritemplate/v3"

	"github.com/wampgo/wampcore/werr"
)

func newServer(t *testing.T, block *ServerBlock) *httptest.Server {
	t.Helper()
	rt := NewRouter()
	rt.AddServerBlock(block)
	srv := httptest.NewServer(rt)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterDispatchesStaticRoute(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(dir+"/hello.txt", "hi"); err != nil {
		t.Fatal(err)
	}
	route, err := StaticRoute("/files/hello.txt", dir)
	if err != nil {
		t.Fatalf("StaticRoute: %v", err)
	}
	block := &ServerBlock{HostPattern: "example.test", Routes: []Route{route}}
	srv := newServer(t, block)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/files/hello.txt", nil)
	req.Host = "example.test"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRouterDispatchesCustomTemplateRoute(t *testing.T) {
	var gotRealm string
	route, err := CustomRoute("/rpc/{realm}", func(w http.ResponseWriter, r *http.Request, vars uritemplate.Values) {
		gotRealm = vars.Get("realm").String()
		w.WriteHeader(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("CustomRoute: %v", err)
	}
	block := &ServerBlock{HostPattern: "example.test", Routes: []Route{route}}
	srv := newServer(t, block)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/rpc/com.example", nil)
	req.Host = "example.test"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if gotRealm != "com.example" {
		t.Fatalf("realm var = %q, want com.example", gotRealm)
	}
}

func TestRouterRejectsUnmatchedHost(t *testing.T) {
	block := &ServerBlock{HostPattern: "example.test"}
	srv := newServer(t, block)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.Host = "other.test"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != werr.HTTPAdmitMisdirectedRequest.StatusCode() {
		t.Fatalf("status = %d, want %d", resp.StatusCode, werr.HTTPAdmitMisdirectedRequest.StatusCode())
	}
}

func TestRouterRejectsOversizedBody(t *testing.T) {
	route, _ := CustomRoute("/echo", func(w http.ResponseWriter, r *http.Request, vars uritemplate.Values) {
		w.WriteHeader(http.StatusOK)
	})
	block := &ServerBlock{HostPattern: "example.test", MaxBodyBytes: 4, Routes: []Route{route}}
	srv := newServer(t, block)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/echo", stringsReader("way too long"))
	req.Host = "example.test"
	req.ContentLength = int64(len("way too long"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != werr.HTTPAdmitContentTooLarge.StatusCode() {
		t.Fatalf("status = %d, want %d", resp.StatusCode, werr.HTTPAdmitContentTooLarge.StatusCode())
	}
}

func TestRouterForcesCloseOnNonSuccessResponse(t *testing.T) {
	block := &ServerBlock{HostPattern: "example.test"}
	srv := newServer(t, block)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/missing", nil)
	req.Host = "example.test"
	req.Close = false
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != werr.HTTPAdmitNotFound.StatusCode() {
		t.Fatalf("status = %d, want %d", resp.StatusCode, werr.HTTPAdmitNotFound.StatusCode())
	}
	if !resp.Close {
		t.Fatal("expected response to signal Connection: close")
	}
}

func TestValidateRequestTargetAcceptsAsteriskOnlyForOptions(t *testing.T) {
	req := &http.Request{Method: http.MethodOptions, RequestURI: "*", URL: mustParseURL("*")}
	if err := validateRequestTarget(req); err != nil {
		t.Fatalf("OPTIONS *: %v", err)
	}

	req2 := &http.Request{Method: http.MethodGet, RequestURI: "*", URL: mustParseURL("*")}
	if err := validateRequestTarget(req2); err == nil {
		t.Fatal("expected GET * to be rejected")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
