package safenet

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"https://discord.com/api/webhooks/1/abc", nil},
		{"http://hooks.example.com/clearwatch", nil},
		{"ftp://evil.com/data", ErrUnsafeScheme},
		{"javascript:alert(1)", ErrUnsafeScheme},
		{"http://127.0.0.1/admin", ErrPrivateAddress},
		{"http://localhost:8080/", ErrPrivateAddress},
		{"http://10.0.0.1/internal", ErrPrivateAddress},
		{"http://192.168.1.1/api", ErrPrivateAddress},
		{"http://[::1]/api", ErrPrivateAddress},
		{"http://172.16.0.1/secret", ErrPrivateAddress},
		{"http://169.254.169.254/latest/meta-data", ErrPrivateAddress},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.want == nil {
			if err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.want)
		}
	}

	if err := ValidateURL("https:///nohost"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"::ffff:10.1.2.3", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"162.159.135.232", false},
		{"2606:4700::6810:84e5", false},
	}
	for _, tt := range tests {
		if got := IsPrivate(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("IsPrivate(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestClient_RefusesLoopback(t *testing.T) {
	// WHAT: The guarded client cannot reach a server on 127.0.0.1.
	// WHY: Hostnames are only resolved at dial time, so that is where
	// private targets must be refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := Client(5*time.Second).Get(srv.URL)
	if !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("err = %v, want ErrPrivateAddress", err)
	}

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("unguarded client: %v", err)
	}
	resp.Body.Close()
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Errorf("at limit: %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Errorf("over limit: err = %v, want ErrTooLarge", err)
	}
}
