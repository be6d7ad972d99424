package bot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/search"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
)

// Requester is the part of *nats.Conn the client uses.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client asks a remote bot for moves. Transport failures are retried with
// backoff; an error reply from the bot is not.
type Client struct {
	nc       Requester
	subject  string
	timeout  time.Duration
	attempts uint
}

func NewClient(nc Requester, subject string, timeout time.Duration, attempts uint) *Client {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	return &Client{nc: nc, subject: subject, timeout: timeout, attempts: attempts}
}

// RequestMove sends the request to the bot and returns its direction.
func (c *Client) RequestMove(ctx context.Context, req search.Request) (board.Direction, error) {
	data, err := json.Marshal(NewMoveRequest(req))
	if err != nil {
		return board.NoDirection, err
	}
	res, err := retry.DoWithData(
		func() (*nats.Msg, error) {
			rctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return c.nc.RequestWithContext(rctx, c.subject, data)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Err(err).Uint("n", n).Msg("bot-request-failed-try-again")
		}),
	)
	if err != nil {
		return board.NoDirection, err
	}
	log.Debug().Str("res", string(res.Data)).Msg("bot-reply")

	var resp MoveResponse
	if err := json.Unmarshal(res.Data, &resp); err != nil {
		return board.NoDirection, err
	}
	return resp.Direction()
}
