// Package bot serves and requests autonomous moves over NATS
// request/reply, with JSON bodies.
package bot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/search"
)

// Searcher is what the bot asks for moves.
type Searcher interface {
	RequestMove(ctx context.Context, req search.Request) (board.Direction, error)
}

type Bot struct {
	searcher Searcher
	timeout  time.Duration
}

func NewBot(s Searcher, timeout time.Duration) *Bot {
	return &Bot{searcher: s, timeout: timeout}
}

// Handle answers one request body. It never fails: problems are reported
// in the response.
func (bot *Bot) Handle(ctx context.Context, data []byte) MoveResponse {
	var req MoveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse("could not parse request", err)
	}
	sreq, err := req.Decode()
	if err != nil {
		return errorResponse("bad request", err)
	}
	if bot.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bot.timeout)
		defer cancel()
	}
	ts := time.Now()
	d, err := bot.searcher.RequestMove(ctx, sreq)
	if err != nil {
		return errorResponse("search failed", err)
	}
	log.Info().Str("algorithm", string(sreq.Algorithm)).Int("depth", sreq.Depth).
		Str("move", d.String()).Dur("elapsed", time.Since(ts)).Msg("bot-move")
	return MoveResponse{Move: int(d), Engine: Engine}
}

func (bot *Bot) respond(ctx context.Context, m *nats.Msg) {
	log.Debug().Int("bytes", len(m.Data)).Msg("bot-recv")
	data, err := json.Marshal(bot.Handle(ctx, m.Data))
	if err != nil {
		// Should never happen, ideally, but we need to do something sensible here.
		log.Err(err).Msg("bot-marshal-failed")
		data = []byte(`{"move":-1,"error":"internal error"}`)
	}
	if err := m.Respond(data); err != nil {
		log.Err(err).Msg("bot-respond-failed")
	}
}

// Serve subscribes to subject on nc and answers requests until ctx is
// done. Requests are handled on a queue group so several bots can share a
// subject.
func (bot *Bot) Serve(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.QueueSubscribe(subject, "slide-bots", func(m *nats.Msg) {
		bot.respond(ctx, m)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("subject", subject).Msg("bot-listening")
	<-ctx.Done()
	return nil
}
