package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/leaderboard"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Live standings are public and read only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// LiveStandings streams the standings of a competition over a websocket. The first
// message is the current snapshot, every recalculation is pushed afterwards.
func (a *API) LiveStandings(c *gin.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	competitionID := c.Param("id")

	snapshot, err := a.currentStandings(ctx, competitionID)
	if err != nil {
		a.fail(c, err)
		return
	}

	sub := a.redis.Subscribe(ctx, a.competitionChannel(competitionID))
	defer sub.Close()

	// Wait for the subscription so no update between snapshot and stream is lost.
	if _, err := sub.Receive(ctx); err != nil {
		a.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "api: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	first, err := json.Marshal(Notification{
		Event: domain.EventNameStandingsUpdated,
		Data:  Standings{CompetitionID: competitionID, Standings: toStandings(snapshot)},
	})
	if err != nil {
		slog.ErrorContext(ctx, "api: marshal standings", "error", err)
		return
	}
	if err := write(conn, websocket.TextMessage, first); err != nil {
		return
	}

	go readUntilClosed(conn, cancel)

	var (
		ping = time.NewTicker(pingPeriod)
		msgs = sub.Channel()
	)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := write(conn, websocket.TextMessage, []byte(msg.Payload)); err != nil {
				slog.DebugContext(ctx, "api: websocket write failed", "competition_id", competitionID, "error", err)
				return
			}

		case <-ping.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// currentStandings reads the cache and falls back to computing from storage.
func (a *API) currentStandings(ctx context.Context, competitionID string) ([]domain.OverallStanding, error) {
	standings, err := a.ls.GetStandings(ctx, leaderboard.GetStandingsRequest{CompetitionID: competitionID})
	if err == nil {
		return standings, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		slog.WarnContext(ctx, "api: standings cache unavailable", "competition_id", competitionID, "error", err)
	}

	l, err := a.cs.Leaderboard(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return l.Standings, nil
}

// readUntilClosed drains client frames so pongs and close frames are handled.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func write(conn *websocket.Conn, messageType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}
