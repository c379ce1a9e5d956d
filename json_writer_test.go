package taxlot

import (
	"encoding/json"
	"testing"
)

func TestJsonObjectWriter(t *testing.T) {
	t.Run("empty object", func(t *testing.T) {
		var w jsonObjectWriter
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := "{}"; string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("fields keep insertion order", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("b", 1)
		w.Append("a", "hello")
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"b":1,"a":"hello"}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("embed object", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 1)
		w.Embed(json.RawMessage(`{"c":3,"d":4}`))
		w.Append("b", 2)
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":1,"c":3,"d":4,"b":2}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("optional skips zero values", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 0) // Append keeps a zero value, only Optional drops it.
		w.Optional("b", "")
		w.Optional("c", 0)
		w.Optional("d", "hello")
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":0,"d":"hello"}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("embed from struct", func(t *testing.T) {
		var w jsonObjectWriter
		embedded := struct {
			C int    `json:"c"`
			D string `json:"d"`
		}{C: 3, D: "hello"}
		w.Append("a", 1)
		w.EmbedFrom(embedded)
		w.Append("b", 2)
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":1,"c":3,"d":"hello","b":2}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

// Disposals are encoded through the writer: the field order is fixed and the
// version only appears once a record has been amended.
func TestDisposal_MarshalOrder(t *testing.T) {
	d := &Disposal{
		ID:           "d-1",
		Version:      1,
		LotID:        "lot-1",
		Account:      acct,
		Symbol:       "AAPL",
		Acquired:     MustParseDate("2025-01-02"),
		Close:        MustParseDate("2025-02-10"),
		Quantity:     Q(10),
		Proceeds:     USD(120),
		CostBasis:    USD(100),
		RawGain:      USD(20),
		AdjustedGain: USD(20),
		Term:         Short,
	}
	got, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"d-1","lot":"lot-1","account":"acct-1","symbol":"AAPL",` +
		`"acquired":"2025-01-02","close":"2025-02-10","quantity":10,` +
		`"proceeds":120,"costBasis":100,"rawGain":20,"adjustedGain":20,` +
		`"term":"SHORT","currency":"USD"}`
	if string(got) != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}
