package api

import (
	"net/http"
	"time"

	"github.com/nbd-wtf/go-nostr"
	gocache "github.com/patrickmn/go-cache"

	"github.com/massmux/zapperd/internal/watcher"
)

// StatusService is the read-only operator surface: where the cursor is,
// whether the watcher is stuck, and which receipts went out recently.
type StatusService struct {
	watcher   *watcher.Watcher
	receipts  *gocache.Cache
	startedAt time.Time
}

func NewStatusService(w *watcher.Watcher) *StatusService {
	return &StatusService{
		watcher:   w,
		receipts:  gocache.New(24*time.Hour, time.Hour),
		startedAt: time.Now(),
	}
}

func (s *StatusService) Mount(server *Server) {
	server.AppendRoute("/status", s.Status, http.MethodGet)
	server.AppendRoute("/zaps", s.Zaps, http.MethodGet)
}

// RememberReceipt keeps a published receipt in the recent window. Wired as
// the watcher's OnReceipt hook.
func (s *StatusService) RememberReceipt(ev nostr.Event) {
	s.receipts.Set(ev.ID, ev, gocache.DefaultExpiration)
}

func (s *StatusService) Status(writer http.ResponseWriter, request *http.Request) {
	response := struct {
		watcher.Stats
		UptimeSeconds int64 `json:"uptime_seconds"`
	}{
		Stats:         s.watcher.Stats(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if err := WriteResponse(writer, response); err != nil {
		NotFoundHandler(writer, err)
	}
}

func (s *StatusService) Zaps(writer http.ResponseWriter, request *http.Request) {
	items := s.receipts.Items()
	receipts := make([]nostr.Event, 0, len(items))
	for _, item := range items {
		if ev, ok := item.Object.(nostr.Event); ok {
			receipts = append(receipts, ev)
		}
	}
	if err := WriteResponse(writer, receipts); err != nil {
		NotFoundHandler(writer, err)
	}
}
