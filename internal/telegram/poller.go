package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/utils"
)

// PollState is the poller lifecycle state.
type PollState int

const (
	Idle PollState = iota
	Polling
)

func (s PollState) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// ErrNoReplyTarget is returned by SendText before the first remote message
// of the session has fixed a destination chat.
var ErrNoReplyTarget = errors.New("no reply target captured yet")

// Poller long-polls the bot inbox, extracts move tokens from message text
// and forwards them to the move callback. It owns the update cursor: the
// highest update identifier processed so far, held in memory only, so a
// restart may reprocess the last unacknowledged batch.
type Poller struct {
	client *Client
	log    *utils.Logger
	onMove func(token string)

	limit       int
	pollTimeout int
	okDelay     time.Duration
	failDelay   time.Duration

	// sleep is replaceable in tests, as in the dispatcher.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   PollState
	cursor  int64
	replyTo int64
	cancel  context.CancelFunc
	done    chan struct{}
}

// PollerOptions carries the poll cadence settings.
type PollerOptions struct {
	Limit       int           // max updates per fetch, capped at 10
	PollTimeout int           // long-poll hold, seconds
	OKDelay     time.Duration // wait after a successful poll
	FailDelay   time.Duration // wait after a failed poll
}

// NewPoller builds an idle poller. onMove receives each valid, lowercased
// move token found in incoming text.
func NewPoller(client *Client, log *utils.Logger, onMove func(token string), opts PollerOptions) *Poller {
	if opts.Limit <= 0 || opts.Limit > 10 {
		opts.Limit = 10
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	if opts.OKDelay <= 0 {
		opts.OKDelay = time.Second
	}
	if opts.FailDelay <= 0 {
		opts.FailDelay = 5 * time.Second
	}
	return &Poller{
		client:      client,
		log:         log,
		onMove:      onMove,
		limit:       opts.Limit,
		pollTimeout: opts.PollTimeout,
		okDelay:     opts.OKDelay,
		failDelay:   opts.FailDelay,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State returns the current poller state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cursor returns the highest update identifier processed so far.
func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Start launches the polling loop. A second Start while polling is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Polling {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.state = Polling
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop cancels the loop and waits for it to exit. The in-flight long poll is
// not forcibly aborted beyond its context cancellation; it is simply not
// repeated.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state != Polling {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	p.state = Idle
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		delay := p.okDelay
		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient failure and permanent misconfiguration retry
			// alike; the loop never gives up on its own.
			p.log.Errorf("poll failed: %v", err)
			delay = p.failDelay
		}
		if err := p.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// pollOnce fetches one batch of updates and processes it.
func (p *Poller) pollOnce(ctx context.Context) error {
	updates, err := p.client.GetUpdates(ctx, p.Cursor()+1, p.limit, p.pollTimeout)
	if err != nil {
		return err
	}
	for i := range updates {
		p.handleUpdate(&updates[i])
	}
	return nil
}

func (p *Poller) handleUpdate(u *Update) {
	p.mu.Lock()
	// Max-based advance: tolerates an out-of-order batch, and the cursor
	// never decreases.
	if u.UpdateID > p.cursor {
		p.cursor = u.UpdateID
	}
	capture := p.replyTo == 0 && u.Message != nil
	if capture {
		p.replyTo = u.Message.Chat.ID
	}
	p.mu.Unlock()

	if capture {
		p.log.Infof("reply target captured: chat %d", u.Message.Chat.ID)
	}
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	token, ok := board.ExtractMove(u.Message.Text)
	if !ok {
		// Chatter without a move token is not an error.
		return
	}
	p.log.Infof("received move %s (update %d)", token, u.UpdateID)
	if p.onMove != nil {
		p.onMove(token)
	}
}

// SendText relays text to the captured reply target. Before a target exists
// the omission is reported and nothing is sent.
func (p *Poller) SendText(ctx context.Context, text string) error {
	p.mu.Lock()
	chatID := p.replyTo
	p.mu.Unlock()

	if chatID == 0 {
		p.log.Warn("sendText dropped: " + ErrNoReplyTarget.Error())
		return ErrNoReplyTarget
	}
	if err := p.client.SendMessage(ctx, chatID, text); err != nil {
		p.log.Errorf("sendText failed: %v", err)
		return err
	}
	return nil
}
