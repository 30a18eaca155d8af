package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// EditorOptions tunes an EditorService.
type EditorOptions struct {
	MaxSessions int
	// AutoName schedules a reverse-geocode lookup for every new station.
	AutoName bool
	// AutosaveEvery publishes the document once this many revisions
	// accumulated since the last publish.
	AutosaveEvery uint64
	GeoJSONSteps  int
	// Intn picks among unused name candidates; defaults to math/rand.
	Intn func(n int) int
	Now  func() time.Time
}

// SessionInfo describes one open editor session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Revision     uint64    `json:"revision"`
	LineCount    int       `json:"line_count"`
	StationCount int       `json:"station_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// EditResult is returned by every intent.
type EditResult struct {
	// Outcome names the branch an intent took, e.g. "crossed" or "ignored".
	Outcome   string         `json:"outcome,omitempty"`
	StationID int            `json:"station_id,omitempty"`
	Changed   bool           `json:"changed"`
	Frame     domain.Frame   `json:"frame"`
	Summary   domain.Summary `json:"summary"`

	naming *namingRequest
}

type namingRequest struct {
	stationID int
	at        domain.GeoPoint
	notBefore time.Time
}

type session struct {
	mu        sync.Mutex
	id        string
	title     string
	network   *domain.Network
	createdAt time.Time
	published uint64
	// base offsets saved revisions of a loaded map so they keep increasing
	// across sessions.
	base uint64
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:           s.id,
		Title:        s.title,
		Revision:     s.network.Revision(),
		LineCount:    len(s.network.Lines()),
		StationCount: len(s.network.Stations()),
		CreatedAt:    s.createdAt,
	}
}

func (s *session) savedMap(now time.Time) *domain.SavedMap {
	return &domain.SavedMap{
		ID:        s.id,
		Title:     s.title,
		Revision:  s.base + s.network.Revision(),
		Document:  s.network.Export(),
		CreatedAt: s.createdAt,
		UpdatedAt: now,
	}
}

// EditorService holds the in-memory editor sessions and routes user intents
// into their networks. Each session is serialized by its own mutex, so a
// network only ever sees one intent at a time.
type EditorService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	events ports.EditorEventPublisher
	naming ports.NamingScheduler
	opts   EditorOptions
	tracer trace.Tracer
}

// NewEditorService creates a new EditorService. events may be nil.
func NewEditorService(events ports.EditorEventPublisher, opts EditorOptions) *EditorService {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.AutosaveEvery == 0 {
		opts.AutosaveEvery = 1
	}
	if opts.GeoJSONSteps <= 0 {
		opts.GeoJSONSteps = 16
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EditorService{
		sessions: make(map[string]*session),
		events:   events,
		opts:     opts,
		tracer:   otel.Tracer("metromap/editor"),
	}
}

// SetNamingScheduler wires the background runner used for automatic naming.
func (s *EditorService) SetNamingScheduler(n ports.NamingScheduler) {
	s.mu.Lock()
	s.naming = n
	s.mu.Unlock()
}

// --- Sessions ---

// Create opens an empty session.
func (s *EditorService) Create(ctx context.Context, title string) (*SessionInfo, error) {
	sess := &session{
		id:        uuid.NewString(),
		title:     title,
		network:   domain.NewNetwork(nil),
		createdAt: s.opts.Now(),
	}
	if _, err := s.register(sess); err != nil {
		return nil, err
	}
	info := sess.info()
	slog.InfoContext(ctx, "editor session created", "map_id", sess.id)
	return &info, nil
}

// Load opens a session from a saved map. An already open session for the
// same id is returned unchanged.
func (s *EditorService) Load(ctx context.Context, m *domain.SavedMap) (*SessionInfo, error) {
	s.mu.RLock()
	existing, ok := s.sessions[m.ID]
	s.mu.RUnlock()
	if ok {
		existing.mu.Lock()
		defer existing.mu.Unlock()
		info := existing.info()
		return &info, nil
	}

	n := domain.NewNetwork(nil)
	if err := n.Import(m.Document); err != nil {
		return nil, fmt.Errorf("load map %s: %w", m.ID, err)
	}
	n.Flush()
	sess := &session{
		id:        m.ID,
		title:     m.Title,
		network:   n,
		createdAt: m.CreatedAt,
		published: n.Revision(),
		base:      m.Revision,
	}
	registered, err := s.register(sess)
	if err != nil {
		return nil, err
	}
	if registered != sess {
		// lost a race with another Load of the same map
		registered.mu.Lock()
		defer registered.mu.Unlock()
		info := registered.info()
		return &info, nil
	}
	info := sess.info()
	slog.InfoContext(ctx, "editor session loaded", "map_id", sess.id, "stations", info.StationCount)
	return &info, nil
}

// register adds sess unless a session with its id exists already, in which
// case that one is returned instead.
func (s *EditorService) register(sess *session) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sess.id]; ok {
		return existing, nil
	}
	if len(s.sessions) >= s.opts.MaxSessions {
		return nil, fmt.Errorf("%w: limit %d", domain.ErrTooManySessions, s.opts.MaxSessions)
	}
	s.sessions[sess.id] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return sess, nil
}

// Get describes one session.
func (s *EditorService) Get(ctx context.Context, mapID string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.view(ctx, mapID, func(sess *session) error {
		info = sess.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// List describes every open session, oldest first.
func (s *EditorService) List(ctx context.Context) []SessionInfo {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, sess.info())
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete closes a session. Unpublished changes are flushed to the autosave
// stream first.
func (s *EditorService) Delete(ctx context.Context, mapID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[mapID]
	if ok {
		delete(s.sessions, mapID)
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, mapID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if s.events != nil && sess.network.Revision() != sess.published {
		if err := s.events.PublishDocument(ctx, sess.savedMap(s.opts.Now())); err != nil {
			slog.WarnContext(ctx, "publish document on close failed", "map_id", mapID, "error", err)
		}
	}
	slog.InfoContext(ctx, "editor session closed", "map_id", mapID)
	return nil
}

// --- Intents ---

// PlacePoint handles a click on empty map.
func (s *EditorService) PlacePoint(ctx context.Context, mapID string, pos domain.GeoPoint) (*EditResult, error) {
	return s.mutate(ctx, mapID, "place_point", func(n *domain.Network, res *EditResult) error {
		st := n.PlacePoint(pos)
		res.Outcome = "created"
		res.StationID = st.ID()
		s.requestNaming(res, st)
		return nil
	})
}

// ClickStation handles a click on an existing station. An "rename" outcome
// asks the client to prompt for a name and call RenameStation.
func (s *EditorService) ClickStation(ctx context.Context, mapID string, stationID int) (*EditResult, error) {
	return s.mutate(ctx, mapID, "click_station", func(n *domain.Network, res *EditResult) error {
		st, err := n.Station(stationID)
		if err != nil {
			return err
		}
		res.Outcome = n.ClickStation(st).String()
		res.StationID = stationID
		return nil
	})
}

// ClickLine inserts a station where pos lies on one of the line's segments.
func (s *EditorService) ClickLine(ctx context.Context, mapID string, lineID int, pos domain.GeoPoint) (*EditResult, error) {
	return s.mutate(ctx, mapID, "click_line", func(n *domain.Network, res *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		st := n.ClickLine(l, pos)
		if st == nil {
			res.Outcome = domain.ClickIgnored.String()
			return nil
		}
		res.Outcome = "inserted"
		res.StationID = st.ID()
		s.requestNaming(res, st)
		return nil
	})
}

func (s *EditorService) FinishLine(ctx context.Context, mapID string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "finish_line", func(n *domain.Network, _ *EditResult) error {
		n.FinishLine()
		return nil
	})
}

func (s *EditorService) ContinueLine(ctx context.Context, mapID string, lineID int) (*EditResult, error) {
	return s.mutate(ctx, mapID, "continue_line", func(n *domain.Network, _ *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		n.ContinueLine(l)
		return nil
	})
}

func (s *EditorService) SelectLineType(ctx context.Context, mapID string, lineType string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "select_line_type", func(n *domain.Network, _ *EditResult) error {
		return n.SelectLineType(domain.LineTypeID(lineType))
	})
}

func (s *EditorService) ToggleControlPoints(ctx context.Context, mapID string, show bool) (*EditResult, error) {
	return s.mutate(ctx, mapID, "toggle_control_points", func(n *domain.Network, _ *EditResult) error {
		n.SetShowControlPoints(show)
		return nil
	})
}

func (s *EditorService) RenameStation(ctx context.Context, mapID string, stationID int, name string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "rename_station", func(n *domain.Network, res *EditResult) error {
		st, err := n.Station(stationID)
		if err != nil {
			return err
		}
		res.StationID = stationID
		n.RenameStation(st, name)
		return nil
	})
}

func (s *EditorService) RemoveStation(ctx context.Context, mapID string, stationID int) (*EditResult, error) {
	return s.mutate(ctx, mapID, "remove_station", func(n *domain.Network, res *EditResult) error {
		st, err := n.Station(stationID)
		if err != nil {
			return err
		}
		res.StationID = stationID
		n.RemoveStation(st)
		return nil
	})
}

// UncrossStation removes an interchange from one of its lines.
func (s *EditorService) UncrossStation(ctx context.Context, mapID string, stationID, lineID int) (*EditResult, error) {
	return s.mutate(ctx, mapID, "uncross_station", func(n *domain.Network, res *EditResult) error {
		st, err := n.Station(stationID)
		if err != nil {
			return err
		}
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		res.StationID = stationID
		n.UncrossStation(st, l)
		return nil
	})
}

func (s *EditorService) MoveStation(ctx context.Context, mapID string, stationID int, pos domain.GeoPoint) (*EditResult, error) {
	return s.mutate(ctx, mapID, "move_station", func(n *domain.Network, res *EditResult) error {
		st, err := n.Station(stationID)
		if err != nil {
			return err
		}
		res.StationID = stationID
		n.MoveStation(st, pos)
		return nil
	})
}

func (s *EditorService) MoveControlPoint(ctx context.Context, mapID string, lineID, index int, pos domain.GeoPoint) (*EditResult, error) {
	return s.mutate(ctx, mapID, "move_control_point", func(n *domain.Network, _ *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		cp, err := l.ControlPoint(index)
		if err != nil {
			return err
		}
		n.MoveControlPoint(cp, pos)
		return nil
	})
}

func (s *EditorService) RenameLine(ctx context.Context, mapID string, lineID int, name string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "rename_line", func(n *domain.Network, _ *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		n.RenameLine(l, name)
		return nil
	})
}

func (s *EditorService) RemoveLine(ctx context.Context, mapID string, lineID int) (*EditResult, error) {
	return s.mutate(ctx, mapID, "remove_line", func(n *domain.Network, _ *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		n.RemoveLine(l)
		return nil
	})
}

func (s *EditorService) ChangeLineType(ctx context.Context, mapID string, lineID int, lineType string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "change_line_type", func(n *domain.Network, _ *EditResult) error {
		l, err := n.Line(lineID)
		if err != nil {
			return err
		}
		_, err = n.ChangeLineType(l, domain.LineTypeID(lineType))
		return err
	})
}

// Undo reverts the latest operation. The outcome is the reverted operation
// kind, or "ignored" when there is nothing to undo.
func (s *EditorService) Undo(ctx context.Context, mapID string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "undo", func(n *domain.Network, res *EditResult) error {
		op, ok := n.Undo()
		res.Outcome = historyOutcome(op, ok)
		if ok {
			metrics.EditorHistory.WithLabelValues("undo").Inc()
		}
		return nil
	})
}

// Redo re-applies the latest undone operation.
func (s *EditorService) Redo(ctx context.Context, mapID string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "redo", func(n *domain.Network, res *EditResult) error {
		op, ok := n.Redo()
		res.Outcome = historyOutcome(op, ok)
		if ok {
			metrics.EditorHistory.WithLabelValues("redo").Inc()
		}
		return nil
	})
}

func historyOutcome(op domain.Operation, ok bool) string {
	if !ok {
		return domain.ClickIgnored.String()
	}
	return string(op.Kind())
}

// Import merges a document into the session. Nothing changes when the
// document is malformed.
func (s *EditorService) Import(ctx context.Context, mapID string, doc domain.Document) (*EditResult, error) {
	res, err := s.mutate(ctx, mapID, "import", func(n *domain.Network, res *EditResult) error {
		if err := n.Import(doc); err != nil {
			return err
		}
		res.Outcome = "imported"
		return nil
	})
	if err != nil {
		metrics.ImportedDocuments.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ImportedDocuments.WithLabelValues("ok").Inc()
	return res, nil
}

// --- Naming ---

// GeocodeSlot reserves the next lookup slot of a station and returns where
// and when the lookup may run.
func (s *EditorService) GeocodeSlot(ctx context.Context, mapID string, stationID int) (domain.GeoPoint, time.Time, error) {
	var (
		pos domain.GeoPoint
		at  time.Time
	)
	err := s.view(ctx, mapID, func(sess *session) error {
		st, err := sess.network.Station(stationID)
		if err != nil {
			return err
		}
		pos = st.Position()
		at = st.NextGeocodeSlot(s.opts.Now())
		return nil
	})
	return pos, at, err
}

// ApplyName picks a candidate no other station uses and sets it without
// recording an operation. A station removed in the meantime is reported with
// the "discarded" outcome and no error.
func (s *EditorService) ApplyName(ctx context.Context, mapID string, stationID int, candidates []string) (*EditResult, error) {
	return s.mutate(ctx, mapID, "suggest_name", func(n *domain.Network, res *EditResult) error {
		res.StationID = stationID
		st, err := n.Station(stationID)
		if err != nil {
			res.Outcome = "discarded"
			return nil
		}
		name := n.PickUnusedName(candidates, s.opts.Intn)
		if n.ApplySuggestedName(st, name) {
			res.Outcome = "named"
		} else {
			res.Outcome = domain.ClickIgnored.String()
		}
		return nil
	})
}

func (s *EditorService) requestNaming(res *EditResult, st *domain.Station) {
	if !s.opts.AutoName {
		return
	}
	res.naming = &namingRequest{
		stationID: st.ID(),
		at:        st.Position(),
		notBefore: st.NextGeocodeSlot(s.opts.Now()),
	}
}

// --- Views ---

// Export returns the session's document.
func (s *EditorService) Export(ctx context.Context, mapID string) (domain.Document, error) {
	var doc domain.Document
	err := s.view(ctx, mapID, func(sess *session) error {
		doc = sess.network.Export()
		return nil
	})
	return doc, err
}

// SavedMap packages the session for persistence.
func (s *EditorService) SavedMap(ctx context.Context, mapID string) (*domain.SavedMap, error) {
	var m *domain.SavedMap
	err := s.view(ctx, mapID, func(sess *session) error {
		m = sess.savedMap(s.opts.Now())
		return nil
	})
	return m, err
}

// SetTitle renames the session.
func (s *EditorService) SetTitle(ctx context.Context, mapID, title string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.view(ctx, mapID, func(sess *session) error {
		sess.title = title
		info = sess.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SetMeta stores the map centre and zoom with the document. The change is
// autosaved like any intent.
func (s *EditorService) SetMeta(ctx context.Context, mapID string, meta domain.MapMeta) error {
	_, err := s.mutate(ctx, mapID, "set_meta", func(n *domain.Network, _ *EditResult) error {
		n.SetMeta(meta)
		return nil
	})
	return err
}

func (s *EditorService) Summary(ctx context.Context, mapID string) (domain.Summary, error) {
	var sum domain.Summary
	err := s.view(ctx, mapID, func(sess *session) error {
		sum = sess.network.Summary()
		return nil
	})
	return sum, err
}

// Render returns a full frame of the session regardless of pending changes.
func (s *EditorService) Render(ctx context.Context, mapID string) (domain.Frame, error) {
	var f domain.Frame
	err := s.view(ctx, mapID, func(sess *session) error {
		f = sess.network.Snapshot()
		return nil
	})
	return f, err
}

// Inspect runs fn with the session's network locked. fn must not keep
// references to the network after it returns.
func (s *EditorService) Inspect(ctx context.Context, mapID string, fn func(n *domain.Network) error) error {
	return s.view(ctx, mapID, func(sess *session) error {
		return fn(sess.network)
	})
}

// --- internals ---

func (s *EditorService) lookup(mapID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[mapID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, mapID)
	}
	return sess, nil
}

func (s *EditorService) view(_ context.Context, mapID string, fn func(sess *session) error) error {
	sess, err := s.lookup(mapID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

// mutate runs one intent under the session lock, then flushes the frame and
// fans the changes out. Publish failures are logged; the intent has already
// been applied and is not rolled back.
func (s *EditorService) mutate(ctx context.Context, mapID, kind string, fn func(n *domain.Network, res *EditResult) error) (*EditResult, error) {
	ctx, span := s.tracer.Start(ctx, "editor."+kind, trace.WithAttributes(
		attribute.String("map.id", mapID),
	))
	defer span.End()

	sess, err := s.lookup(mapID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &EditResult{}
	sess.mu.Lock()
	before := sess.network.Revision()
	if err := fn(sess.network, res); err != nil {
		sess.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.Changed = sess.network.Revision() != before
	res.Frame = sess.network.Flush()
	res.Summary = sess.network.Summary()
	// published under the session lock so subscribers see revisions in order
	s.publish(ctx, sess, res)
	sess.mu.Unlock()

	metrics.EditorOperations.WithLabelValues(kind, metrics.Changed(res.Changed)).Inc()
	span.SetAttributes(
		attribute.String("editor.outcome", res.Outcome),
		attribute.Bool("editor.changed", res.Changed),
		attribute.Int64("editor.revision", int64(res.Summary.Revision)),
	)

	if res.naming != nil {
		s.scheduleNaming(ctx, mapID, res.naming)
	}
	return res, nil
}

func (s *EditorService) publish(ctx context.Context, sess *session, res *EditResult) {
	if s.events == nil {
		return
	}
	if !res.Frame.Empty() {
		if err := s.events.PublishFrame(ctx, sess.id, res.Frame); err != nil {
			slog.WarnContext(ctx, "publish frame failed", "map_id", sess.id, "error", err)
		}
	}
	if !res.Changed {
		return
	}
	if err := s.events.PublishSummary(ctx, sess.id, res.Summary); err != nil {
		slog.WarnContext(ctx, "publish summary failed", "map_id", sess.id, "error", err)
	}
	rev := sess.network.Revision()
	if rev-sess.published < s.opts.AutosaveEvery {
		return
	}
	if err := s.events.PublishDocument(ctx, sess.savedMap(s.opts.Now())); err != nil {
		slog.WarnContext(ctx, "publish document failed", "map_id", sess.id, "error", err)
		return
	}
	sess.published = rev
}

func (s *EditorService) scheduleNaming(ctx context.Context, mapID string, req *namingRequest) {
	s.mu.RLock()
	naming := s.naming
	s.mu.RUnlock()
	if naming == nil {
		return
	}
	if err := naming.ScheduleNaming(ctx, mapID, req.stationID, req.at, req.notBefore); err != nil {
		slog.WarnContext(ctx, "schedule station naming failed",
			"map_id", mapID, "station_id", req.stationID, "error", err)
	}
}
