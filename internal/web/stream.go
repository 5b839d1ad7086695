package web

import (
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"
)

const keepAliveInterval = 25 * time.Second

// handleChanges streams a changeSeq signal that increases on every known write.
// Clients refetch when it moves; the first patch is the current value.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	ch, err := s.hub.Subscribe(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(map[string]any{"changeSeq": s.seq.Load()})

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-ch:
			if !ok {
				return
			}
			_ = sse.MarshalAndPatchSignals(map[string]any{"changeSeq": s.seq.Load()})
		}
	}
}
