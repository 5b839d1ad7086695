package live

import "sync"

type NoticeKind int

const (
	// NoticeChanged: local state changed optimistically.
	NoticeChanged NoticeKind = iota
	// NoticeCommitted: the server accepted a local mutation.
	NoticeCommitted
	// NoticeReverted: a local mutation failed and was rolled back.
	NoticeReverted
	// NoticeRefetched: local state was replaced by a full refetch.
	NoticeRefetched
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeChanged:
		return "changed"
	case NoticeCommitted:
		return "committed"
	case NoticeReverted:
		return "reverted"
	case NoticeRefetched:
		return "refetched"
	default:
		return "unknown"
	}
}

// Notice is what the rendering layer hears about. Err is only set on NoticeReverted
// and is always a PersistenceFailure.
type Notice struct {
	Kind NoticeKind
	IDs  []string
	Err  error
}

type noticeHub struct {
	mu   sync.Mutex
	subs map[chan Notice]struct{}
}

func newNoticeHub() *noticeHub {
	return &noticeHub{subs: map[chan Notice]struct{}{}}
}

func (h *noticeHub) subscribe() (ch chan Notice, cancel func()) {
	ch = make(chan Notice, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// broadcast never blocks; a slow subscriber loses notices, not state.
func (h *noticeHub) broadcast(n Notice) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
	h.mu.Unlock()
}
