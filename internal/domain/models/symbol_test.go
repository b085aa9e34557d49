package models

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC":     "BTC",
		"btc":     "BTC",
		" $btc ":  "BTC",
		"$ETH ":   "ETH",
		"$ sol":   "SOL",
		"":        "",
		"   ":     "",
		"$":       "",
		"eth-usd": "ETH-USD",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Fatalf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetadataCloneIsDeep(t *testing.T) {
	src := Metadata{
		"model":  "gpt",
		"nested": map[string]any{"k": []any{1.0, "x"}},
	}
	c := src.Clone()
	c["model"] = "other"
	c["nested"].(map[string]any)["k"].([]any)[0] = 2.0

	if src["model"] != "gpt" {
		t.Fatalf("top-level value leaked into source")
	}
	if src["nested"].(map[string]any)["k"].([]any)[0] != 1.0 {
		t.Fatalf("nested value leaked into source")
	}
}

func TestMetadataCloneNil(t *testing.T) {
	var m Metadata
	c := m.Clone()
	if c == nil || len(c) != 0 {
		t.Fatalf("expected empty non-nil metadata, got %#v", c)
	}
}
