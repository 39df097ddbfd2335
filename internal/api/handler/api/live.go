package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/cryptodash/internal/api/response"
	"github.com/newthinker/cryptodash/internal/api/session"
	"github.com/newthinker/cryptodash/internal/chart"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/newthinker/cryptodash/internal/storage/archive"
	"go.uber.org/zap"
)

// LiveHandler exposes the live sessions of the server.
type LiveHandler struct {
	sessions *session.Registry
	archive  archive.Archive
	logger   *zap.Logger
}

// NewLiveHandler creates a live handler. ar may be nil when snapshots are
// disabled.
func NewLiveHandler(sessions *session.Registry, ar archive.Archive, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{sessions: sessions, archive: ar, logger: logger}
}

// List returns a snapshot of every registered session.
func (h *LiveHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.sessions.List()
	response.JSON(w, http.StatusOK, map[string]any{
		"sessions": snaps,
		"count":    len(snaps),
		"active":   h.sessions.Active(),
	})
}

// Get returns one session snapshot.
func (h *LiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, s.Snapshot())
}

// Chart renders one chart of a session as PNG. Sessions that have left the
// registry are served from the snapshot archive. A session without points
// yet answers 204.
func (h *LiveHandler) Chart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kind, ok := parseChartFile(r.PathValue("file"))
	if !ok {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrConfigInvalid, errors.New("chart must be percent.png or price.png")))
		return
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		h.serveArchived(w, r, id, kind, err)
		return
	}

	snap := s.Snapshot()
	series := snap.Price
	if kind == live.KindPercent {
		series = snap.Percent
	}

	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, kind.Title(), kind.Axis(), series); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error("rendering chart failed", zap.String("session", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (h *LiveHandler) serveArchived(w http.ResponseWriter, r *http.Request, id string, kind live.Kind, notFound error) {
	if h.archive == nil {
		response.Fail(w, notFound)
		return
	}
	data, err := h.archive.Get(r.Context(), archive.SnapshotKey(id, string(kind)))
	if errors.Is(err, archive.ErrNotFound) {
		response.Fail(w, notFound)
		return
	}
	if err != nil {
		h.logger.Warn("reading archived chart failed", zap.String("session", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, core.WrapError(core.ErrStorageRead, err))
		return
	}
	writePNG(w, data)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseChartFile(file string) (live.Kind, bool) {
	name, ok := strings.CutSuffix(file, ".png")
	if !ok {
		return "", false
	}
	switch k := live.Kind(name); k {
	case live.KindPercent, live.KindPrice:
		return k, true
	}
	return "", false
}
