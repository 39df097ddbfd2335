package selection

import (
	"testing"

	"github.com/newthinker/cryptodash/internal/core"
)

func TestNewDialog(t *testing.T) {
	coins := []core.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		{ID: "solana", Symbol: "sol", Name: "Solana"},
	}

	d := NewDialog(coins, []string{"bitcoin", "ethereum", "delisted"}, "solana")

	want := "You can only select up to 5 coins. To add Solana (SOL), please remove one below:"
	if d.Message != want {
		t.Errorf("message = %q, want %q", d.Message, want)
	}
	if d.PendingID != "solana" {
		t.Errorf("expected pending solana, got %s", d.PendingID)
	}
	if len(d.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(d.Options))
	}
	if d.Options[0].Label != "Bitcoin (BTC)" {
		t.Errorf("unexpected label %q", d.Options[0].Label)
	}
	if d.Options[2].Label != "delisted" {
		t.Errorf("unknown coin should fall back to id, got %q", d.Options[2].Label)
	}
}
