package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(&ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "market",
		User:        "reader",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/market" {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if pw, _ := u.User.Password(); u.User.Username() != "reader" || pw != "p@ss" {
		t.Fatalf("credentials not preserved: %s", dsn)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "30" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Has("read_timeout") {
		t.Fatalf("zero read timeout should be omitted")
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(&ClientConfig{Host: "h", Port: 8123, Database: "d", UseHTTP: true})
	if u, _ := url.Parse(dsn); u.Scheme != "http" {
		t.Fatalf("expected http scheme, got %s", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}
