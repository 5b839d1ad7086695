package live

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
)

const (
	DefaultGuardWindow = 5 * time.Second
	DefaultDebounce    = 300 * time.Millisecond
	fetchTimeout       = 15 * time.Second
)

// flight is one local operation on a project that the repository has not answered yet.
type flight struct {
	seq     uint64
	create  *model.Project
	patches []model.ProjectPatch
	del     bool
}

func (f flight) replay(p model.Project, exists bool) (model.Project, bool) {
	if f.create != nil {
		p, exists = f.create.Clone(), true
	}
	if exists {
		for _, patch := range f.patches {
			patch.Apply(&p)
		}
	}
	if f.del {
		exists = false
	}
	return p, exists
}

// inflight tracks a project with operations outstanding: its last persisted copy and
// the ops still waiting, in the order they were applied locally.
type inflight struct {
	base   model.Project
	exists bool
	pos    int
	ops    []flight
}

type Options struct {
	GuardWindow time.Duration
	Debounce    time.Duration
	Clock       Clock
	Logger      *zap.Logger
}

// Board owns the in-memory project list and roster. Local mutations apply at once and
// persist in the background; remote change signals trigger debounced full refetches
// that are skipped while any local mutation is pending.
type Board struct {
	repo     store.Repository
	log      *zap.Logger
	clock    Clock
	guard    time.Duration
	debounce time.Duration
	hub      *noticeHub

	mu       sync.Mutex
	projects []model.Project
	foremen  []model.Foreman

	// pending: project id -> time after which a remote snapshot may overwrite it.
	pending   map[string]time.Time
	flights   map[string]*inflight
	seq       uint64
	lastLocal time.Time
	localGen  uint64

	timer         Timer
	remotePending bool
	fetching      bool
}

func New(repo store.Repository, opts Options) *Board {
	b := &Board{
		repo:     repo,
		log:      opts.Logger,
		clock:    opts.Clock,
		guard:    opts.GuardWindow,
		debounce: opts.Debounce,
		hub:      newNoticeHub(),
		pending:  map[string]time.Time{},
		flights:  map[string]*inflight{},
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.clock == nil {
		b.clock = realClock{}
	}
	if b.guard <= 0 {
		b.guard = DefaultGuardWindow
	}
	if b.debounce <= 0 {
		b.debounce = DefaultDebounce
	}
	return b
}

// Load replaces local state with the repository contents.
func (b *Board) Load(ctx context.Context) error {
	projects, err := b.repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	foremen, err := b.repo.ListForemen(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.projects = model.CloneProjects(projects)
	b.foremen = append([]model.Foreman{}, foremen...)
	b.mu.Unlock()
	return nil
}

func (b *Board) Subscribe() (<-chan Notice, func()) {
	return b.hub.subscribe()
}

func (b *Board) Projects() []model.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.CloneProjects(b.projects)
}

func (b *Board) Project(id string) (model.Project, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(id); i >= 0 {
		return b.projects[i].Clone(), true
	}
	return model.Project{}, false
}

// Foremen returns the full roster; calendar.VisibleForemen narrows it.
func (b *Board) Foremen() []model.Foreman {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Foreman{}, b.foremen...)
}

func (b *Board) Events() []model.CalendarEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return calendar.DeriveEvents(b.projects)
}

// Pending lists project ids that a refetch may not overwrite yet.
func (b *Board) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.expireLocked(now)
	out := make([]string, 0, len(b.pending))
	for id := range b.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b *Board) LastLocalUpdate() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastLocal
}

// Commit translates an engine batch against current state and applies it.
func (b *Board) Commit(ctx context.Context, batch calendar.Batch) <-chan error {
	if len(batch) == 0 {
		return done(nil)
	}
	b.mu.Lock()
	updates, err := calendar.ProjectUpdates(batch, b.projects)
	if err != nil {
		b.mu.Unlock()
		b.log.Warn("batch dropped", zap.Strings("events", batch.EventIDs()), zap.Error(err))
		return done(err)
	}
	if drift := calendar.SharedRankSiblings(batch, b.projects); len(drift) > 0 {
		b.log.Warn("batch shifts phase events in untouched cells", zap.Strings("events", drift))
	}
	return b.applyLocked(ctx, updates)
}

// ApplyLocal mutates local state at once and persists updates as one batch. The
// returned channel yields nil once the server copies are in place, or a
// PersistenceFailure after rollback. Unknown ids reject the whole batch up front.
func (b *Board) ApplyLocal(ctx context.Context, updates []model.ProjectUpdate) <-chan error {
	if len(updates) == 0 {
		return done(nil)
	}
	b.mu.Lock()
	return b.applyLocked(ctx, updates)
}

// applyLocked is entered with b.mu held and releases it.
func (b *Board) applyLocked(ctx context.Context, updates []model.ProjectUpdate) <-chan error {
	for _, u := range updates {
		if b.indexLocked(u.ID) < 0 {
			b.mu.Unlock()
			err := calendar.StaleReferenceError{EventID: u.ID, ProjectID: u.ID}
			b.log.Warn("local update on missing project", zap.String("project_id", u.ID))
			return done(err)
		}
	}

	var ids []string
	patches := map[string][]model.ProjectPatch{}
	for _, u := range updates {
		if _, ok := patches[u.ID]; !ok {
			ids = append(ids, u.ID)
		}
		patches[u.ID] = append(patches[u.ID], u.Patch)
	}
	seq := b.nextSeqLocked()
	for _, id := range ids {
		b.beginLocked(id, flight{seq: seq, patches: patches[id]})
	}
	for _, u := range updates {
		u.Patch.Apply(&b.projects[b.indexLocked(u.ID)])
	}
	b.markPendingLocked(ids)
	b.mu.Unlock()

	b.hub.broadcast(Notice{Kind: NoticeChanged, IDs: ids})

	res := make(chan error, 1)
	go func() {
		defer close(res)
		out, err := b.repo.UpdateProjects(ctx, updates)

		b.mu.Lock()
		server := make(map[string]model.Project, len(out))
		for _, p := range out {
			server[p.ID] = p
		}
		for _, id := range ids {
			var confirmed *model.Project
			if p, ok := server[id]; ok && err == nil {
				confirmed = &p
			}
			b.settleLocked(id, seq, err == nil, confirmed)
		}
		b.mu.Unlock()
		if err != nil {
			res <- b.fail("update", ids, err)
			return
		}

		b.hub.broadcast(Notice{Kind: NoticeCommitted, IDs: ids})
		res <- nil
	}()
	return res
}

// CreateLocal inserts p locally and persists it. An empty id is filled in first so
// the optimistic copy and the stored record share it.
func (b *Board) CreateLocal(ctx context.Context, p model.Project) (string, <-chan error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = store.NewProjectID()
	}
	if model.IsUnassigned(p.AssignedEmployeeID) {
		p.AssignedEmployeeID = model.Unassigned
	}
	ids := []string{p.ID}

	b.mu.Lock()
	if b.indexLocked(p.ID) >= 0 {
		b.mu.Unlock()
		return p.ID, done(errors.New("project already exists: " + p.ID))
	}
	seq := b.nextSeqLocked()
	optimistic := p.Clone()
	b.beginLocked(p.ID, flight{seq: seq, create: &optimistic})
	b.projects = append(b.projects, p)
	b.markPendingLocked(ids)
	b.mu.Unlock()
	b.hub.broadcast(Notice{Kind: NoticeChanged, IDs: ids})

	res := make(chan error, 1)
	go func() {
		defer close(res)
		created, err := b.repo.CreateProject(ctx, p)

		b.mu.Lock()
		if err != nil {
			b.settleLocked(p.ID, seq, false, nil)
			b.mu.Unlock()
			res <- b.fail("create", ids, err)
			return
		}
		b.settleLocked(p.ID, seq, true, &created)
		b.mu.Unlock()

		b.hub.broadcast(Notice{Kind: NoticeCommitted, IDs: ids})
		res <- nil
	}()
	return p.ID, res
}

// DeleteLocal removes a project locally and persists the delete. A failed delete
// puts the project back at its old position.
func (b *Board) DeleteLocal(ctx context.Context, id string) <-chan error {
	ids := []string{id}

	b.mu.Lock()
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return done(calendar.StaleReferenceError{EventID: id, ProjectID: id})
	}
	seq := b.nextSeqLocked()
	b.beginLocked(id, flight{seq: seq, del: true})
	b.projects = append(b.projects[:i], b.projects[i+1:]...)
	b.markPendingLocked(ids)
	b.mu.Unlock()
	b.hub.broadcast(Notice{Kind: NoticeChanged, IDs: ids})

	res := make(chan error, 1)
	go func() {
		defer close(res)
		err := b.repo.DeleteProject(ctx, id)
		ok := err == nil || errors.Is(err, store.ErrNotFound)

		b.mu.Lock()
		b.settleLocked(id, seq, ok, nil)
		b.mu.Unlock()
		if !ok {
			res <- b.fail("delete", ids, err)
			return
		}

		b.hub.broadcast(Notice{Kind: NoticeCommitted, IDs: ids})
		res <- nil
	}()
	return res
}

func (b *Board) fail(op string, ids []string, err error) error {
	pf := PersistenceFailure{Op: op, IDs: ids, Err: err}
	b.log.Error("persistence failed, local state reverted",
		zap.String("op", op),
		zap.Strings("project_ids", ids),
		zap.Error(err))
	b.hub.broadcast(Notice{Kind: NoticeReverted, IDs: ids, Err: pf})
	return pf
}

// OnRemoteChange records a "something changed" signal. Bursts collapse into one
// refetch after the debounce interval.
func (b *Board) OnRemoteChange() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remotePending = true
	if b.timer == nil {
		b.timer = b.clock.AfterFunc(b.debounce, b.onTimer)
		return
	}
	b.timer.Reset(b.debounce)
}

func (b *Board) onTimer() {
	b.mu.Lock()
	if b.fetching {
		b.timer.Reset(b.debounce)
		b.mu.Unlock()
		return
	}
	if !b.remotePending {
		b.mu.Unlock()
		return
	}
	b.remotePending = false
	if n := b.pendingCountLocked(b.clock.Now()); n > 0 {
		b.mu.Unlock()
		b.log.Warn("remote change ignored while local edits are pending", zap.Int("pending", n))
		return
	}
	b.fetching = true
	gen := b.localGen
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	b.refetch(ctx, gen)

	b.mu.Lock()
	b.fetching = false
	if b.remotePending {
		b.timer.Reset(b.debounce)
	}
	b.mu.Unlock()
}

// Refresh refetches at once unless local edits are pending.
func (b *Board) Refresh(ctx context.Context) (bool, error) {
	b.mu.Lock()
	if b.pendingCountLocked(b.clock.Now()) > 0 {
		b.mu.Unlock()
		return false, nil
	}
	gen := b.localGen
	b.mu.Unlock()
	return b.refetch(ctx, gen)
}

// refetch replaces local state wholesale, unless a local mutation started after gen.
func (b *Board) refetch(ctx context.Context, gen uint64) (bool, error) {
	projects, err := b.repo.ListProjects(ctx)
	if err != nil {
		b.log.Error("refetch failed", zap.Error(err))
		return false, err
	}
	foremen, err := b.repo.ListForemen(ctx)
	if err != nil {
		b.log.Error("refetch failed", zap.Error(err))
		return false, err
	}

	b.mu.Lock()
	b.foremen = append([]model.Foreman{}, foremen...)
	if b.localGen != gen {
		b.mu.Unlock()
		b.log.Debug("refetch discarded, local edit started meanwhile")
		return false, nil
	}
	b.projects = model.CloneProjects(projects)
	b.mu.Unlock()

	b.hub.broadcast(Notice{Kind: NoticeRefetched})
	return true, nil
}

func (b *Board) markPendingLocked(ids []string) {
	now := b.clock.Now()
	b.lastLocal = now
	b.localGen++
	for _, id := range ids {
		b.pending[id] = now.Add(b.guard)
	}
}

func (b *Board) nextSeqLocked() uint64 {
	b.seq++
	return b.seq
}

// beginLocked registers op for id before its optimistic copy is written. The first
// op in flight captures the current copy as the persisted base.
func (b *Board) beginLocked(id string, op flight) {
	t := b.flights[id]
	if t == nil {
		t = &inflight{pos: len(b.projects)}
		if i := b.indexLocked(id); i >= 0 {
			t.base = b.projects[i].Clone()
			t.exists = true
			t.pos = i
		}
		b.flights[id] = t
	}
	t.ops = append(t.ops, op)
}

// settleLocked retires op seq for id and rebuilds the local copy: the persisted base,
// advanced by op when it succeeded, with every op still in flight replayed on top.
func (b *Board) settleLocked(id string, seq uint64, ok bool, server *model.Project) {
	t := b.flights[id]
	if t == nil {
		return
	}
	for k, op := range t.ops {
		if op.seq != seq {
			continue
		}
		t.ops = append(t.ops[:k], t.ops[k+1:]...)
		if ok {
			switch {
			case server != nil:
				t.base, t.exists = server.Clone(), true
			default:
				t.base, t.exists = op.replay(t.base, t.exists)
			}
		}
		break
	}

	cur, exists := t.base.Clone(), t.exists
	for _, op := range t.ops {
		cur, exists = op.replay(cur, exists)
	}
	i := b.indexLocked(id)
	switch {
	case exists && i >= 0:
		b.projects[i] = cur
	case exists:
		at := t.pos
		if at > len(b.projects) {
			at = len(b.projects)
		}
		b.projects = append(b.projects[:at], append([]model.Project{cur}, b.projects[at:]...)...)
	case i >= 0:
		b.projects = append(b.projects[:i], b.projects[i+1:]...)
	}
	if len(t.ops) == 0 {
		delete(b.flights, id)
	}
}

func (b *Board) expireLocked(now time.Time) {
	for id, safeAfter := range b.pending {
		if b.flights[id] == nil && !now.Before(safeAfter) {
			delete(b.pending, id)
		}
	}
}

func (b *Board) pendingCountLocked(now time.Time) int {
	b.expireLocked(now)
	return len(b.pending)
}

func (b *Board) indexLocked(id string) int {
	for i := range b.projects {
		if b.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
