package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/metrics"
	"github.com/DoyleJ11/lol-draft-assistant/internal/names"
)

var ErrClosed = errors.New("lobby closed")
var ErrNoChampionAvailable = errors.New("no legal champion available")

type Msg interface{ isLobbyMsg() }

// FromClient applies an engine command. Reply may be nil.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// Random applies a uniformly random legal champion from Pool.
type Random struct {
	Pool  []string
	Reply chan Result
}

func (Random) isLobbyMsg() {}

type Undo struct{ Reply chan Result }

func (Undo) isLobbyMsg() {}

// Reset returns to turn 0 keeping team names and home side.
type Reset struct{ Reply chan Result }

func (Reset) isLobbyMsg() {}

// SetHome toggles the home side: setting the side already set clears it.
type SetHome struct {
	Side  engine.Team
	Reply chan Result
}

func (SetHome) isLobbyMsg() {}

// SetTeams names both sides; an empty name restores the default.
type SetTeams struct {
	Blue, Red string
	Reply     chan Result
}

func (SetTeams) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Events     []engine.Event
}

// Result answers a mutating message. On error Snapshot is the unchanged state.
type Result struct {
	Snapshot Snapshot
	Err      error
}

type Option func(*Lobby)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Lobby) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Lobby) { l.metrics = m }
}

// Lobby owns one draft. All mutations run on its loop goroutine, so the
// state and event log have a single writer.
type Lobby struct {
	inbox   chan Msg
	state   engine.State
	events  []engine.Event
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				l.reply(msg.Reply, l.apply(msg.Cmd))

			case Random:
				champion, ok := engine.ChooseRandomLegal(l.state, msg.Pool)
				if !ok {
					err := ErrNoChampionAvailable
					if _, done := engine.CurrentStep(l.state); done {
						err = engine.ErrOutOfPhase
					}
					l.reply(msg.Reply, l.reject(err))
					break
				}
				l.reply(msg.Reply, l.apply(engine.Command{Type: engine.CmdApply, Champion: champion}))

			case Undo:
				trimmed, ok := engine.TrimLastAction(l.events)
				if !ok {
					l.reply(msg.Reply, l.reject(engine.ErrNothingToUndo))
					break
				}
				l.events = trimmed
				l.commit(engine.Reduce(l.state, l.events))
				l.reply(msg.Reply, Result{Snapshot: l.snapshot()})

			case Reset:
				l.events = nil
				l.commit(engine.Reduce(l.state, nil))
				l.reply(msg.Reply, Result{Snapshot: l.snapshot()})

			case SetHome:
				if msg.Side != engine.TeamBlue && msg.Side != engine.TeamRed {
					l.reply(msg.Reply, l.reject(engine.ErrInvalidSide))
					break
				}
				next := l.state.Clone()
				if next.HomeSide == msg.Side {
					next.HomeSide = engine.TeamUnset
				} else {
					next.HomeSide = msg.Side
				}
				l.commit(next)
				l.reply(msg.Reply, Result{Snapshot: l.snapshot()})

			case SetTeams:
				next := l.state.Clone()
				next.Names[engine.TeamBlue] = teamName(msg.Blue, engine.DefaultBlueName)
				next.Names[engine.TeamRed] = teamName(msg.Red, engine.DefaultRedName)
				l.commit(next)
				l.reply(msg.Reply, Result{Snapshot: l.snapshot()})

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
					Events:     append([]engine.Event(nil), l.events...),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		return l.reject(err)
	}
	l.events = append(l.events, events...)
	for _, e := range events {
		if e.Type == engine.EvtChampionBanned || e.Type == engine.EvtChampionPicked {
			l.metrics.ActionApplied(string(e.Team), actionOf(e.Type))
			l.logger.Debug("action applied",
				zap.String("team", string(e.Team)),
				zap.String("champion", e.Champion),
				zap.Int("turn", l.state.Cursor))
		}
	}
	l.commit(next)
	return Result{Snapshot: l.snapshot()}
}

func (l *Lobby) reject(err error) Result {
	l.metrics.ActionRejected(reason(err))
	l.logger.Debug("action rejected", zap.Error(err), zap.Int("turn", l.state.Cursor))
	return Result{Snapshot: l.snapshot(), Err: err}
}

func (l *Lobby) commit(next engine.State) {
	l.state = next
	l.version++
	l.broadcast(l.snapshot())
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, State: l.state.Clone()}
}

func (l *Lobby) reply(ch chan Result, r Result) {
	if ch != nil {
		ch <- r
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby stops.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Call sends a mutating message built around a fresh reply channel and waits
// for its result.
func (l *Lobby) Call(ctx context.Context, build func(reply chan Result) Msg) (Snapshot, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- build(reply):
	case <-l.ctx.Done():
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Snapshot, r.Err
	case <-l.ctx.Done():
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// View returns the current state without mutating it.
func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func teamName(name, fallback string) string {
	if n := names.Clean(name); n != "" {
		return n
	}
	return fallback
}

func actionOf(t engine.EventType) string {
	if t == engine.EvtChampionBanned {
		return string(engine.ActionBan)
	}
	return string(engine.ActionPick)
}

func reason(err error) string {
	switch {
	case errors.Is(err, engine.ErrOutOfPhase):
		return "out_of_phase"
	case errors.Is(err, engine.ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, engine.ErrWrongTurn):
		return "wrong_turn"
	case errors.Is(err, engine.ErrEmptyChampion):
		return "empty_champion"
	case errors.Is(err, engine.ErrNothingToUndo):
		return "nothing_to_undo"
	case errors.Is(err, engine.ErrInvalidSide):
		return "invalid_side"
	case errors.Is(err, ErrNoChampionAvailable):
		return "no_champion"
	default:
		return "other"
	}
}
