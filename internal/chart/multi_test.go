package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/cryptodash/internal/live"
)

type failingSurface struct{ destroyed bool }

func (f *failingSurface) Mount([]live.Series) error  { return errors.New("mount failed") }
func (f *failingSurface) Update([]live.Series) error { return errors.New("update failed") }
func (f *failingSurface) Destroy()                   { f.destroyed = true }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingSurface{}
	m := Multi(NewTextSurface(live.KindPrice, &buf), nil, failing)

	series := []live.Series{{Name: "BTC", Data: points(100)}}
	if err := m.Update(series); err == nil || !strings.Contains(err.Error(), "update failed") {
		t.Errorf("expected joined error, got %v", err)
	}
	if !strings.Contains(buf.String(), "$100.00") {
		t.Errorf("healthy surface should still update, got %q", buf.String())
	}

	m.Destroy()
	if !failing.destroyed {
		t.Error("expected every surface destroyed")
	}
}
