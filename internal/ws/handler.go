package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/assistant"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/lobby"
	"github.com/DoyleJ11/lol-draft-assistant/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	replyTimeout = 5 * time.Second
)

var errUnknownType = errors.New("unknown type")

// Handler subscribes a websocket client to the draft named by ?code=. Every
// snapshot the lobby broadcasts is pushed to the client; client messages are
// applied to the draft and failures are reported to that client only.
func Handler(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := svc.Lobby(r.Context(), code)
		if err != nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := logger.With(zap.String("code", code), zap.String("client_id", clientID))

		out := make(chan lobby.Snapshot, 8)
		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()
		log.Info("client joined")

		// Writer goroutine; the lobby closes out on leave, shutdown or when
		// the client falls behind.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				state := types.NewStateSnapshot(code, snap.Version, snap.State)
				if err := write(writeCtx, conn, types.ServerMessage{Type: types.MsgStateSnapshot, State: &state}); err != nil {
					log.Debug("write failed", zap.Error(err))
					return
				}
			}
			// no more snapshots: lobby gone or client dropped
			_ = conn.Close(websocket.StatusGoingAway, "draft closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client left")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			if err := dispatch(r.Context(), svc, lb, cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// dispatch applies one client message and waits for the lobby's verdict.
// The resulting snapshot reaches the client through the broadcast.
func dispatch(ctx context.Context, svc *assistant.Service, lb *lobby.Lobby, m types.ClientMessage) error {
	build, err := toLobbyMsg(m, svc.Pool)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	_, err = lb.Call(ctx, build)
	return err
}

func toLobbyMsg(m types.ClientMessage, pool func() []string) (func(chan lobby.Result) lobby.Msg, error) {
	command := func(t engine.CommandType, team engine.Team) func(chan lobby.Result) lobby.Msg {
		return func(r chan lobby.Result) lobby.Msg {
			return lobby.FromClient{Cmd: engine.Command{Type: t, Team: team, Champion: m.Champion}, Reply: r}
		}
	}

	switch m.Type {
	case types.MsgApply:
		return command(engine.CmdApply, engine.TeamUnset), nil
	case types.MsgLockPick, types.MsgBanChampion:
		team, err := parseSide(m.Team)
		if err != nil {
			return nil, err
		}
		if m.Type == types.MsgLockPick {
			return command(engine.CmdLockPick, team), nil
		}
		return command(engine.CmdBanChampion, team), nil
	case types.MsgRandom:
		p := pool()
		return func(r chan lobby.Result) lobby.Msg { return lobby.Random{Pool: p, Reply: r} }, nil
	case types.MsgUndo:
		return func(r chan lobby.Result) lobby.Msg { return lobby.Undo{Reply: r} }, nil
	case types.MsgReset:
		return func(r chan lobby.Result) lobby.Msg { return lobby.Reset{Reply: r} }, nil
	case types.MsgSetHome:
		side, err := parseSide(m.Side)
		if err != nil {
			return nil, err
		}
		return func(r chan lobby.Result) lobby.Msg { return lobby.SetHome{Side: side, Reply: r} }, nil
	case types.MsgSetTeams:
		return func(r chan lobby.Result) lobby.Msg { return lobby.SetTeams{Blue: m.Blue, Red: m.Red, Reply: r} }, nil
	default:
		return nil, errUnknownType
	}
}

func parseSide(s string) (engine.Team, error) {
	team, err := engine.ParseTeam(s)
	if err != nil {
		return engine.TeamUnset, err
	}
	if team == engine.TeamUnset {
		return engine.TeamUnset, engine.ErrInvalidSide
	}
	return team, nil
}
