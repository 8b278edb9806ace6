package module

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/notifier"
)

// BalanceStore persists currency balances.
type BalanceStore interface {
	BalanceAdd(ctx context.Context, channel, user string, amount int64) error
}

// StreamStart reports when the current stream went live.
type StreamStart interface {
	StartedAt() (time.Time, bool)
}

// Reward is the payload of a notifier.EventReward.
type Reward struct {
	User     string `json:"user"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type waterEntry struct {
	at     time.Time
	reward *Reward
}

// Water implements !water: whoever reminds the streamer to drink is paid
// one unit of currency per minute since the last reminder.
type Water struct {
	store    BalanceStore
	stream   StreamStart
	notify   notifier.Publisher
	currency string
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastUsed time.Time
	waters   []waterEntry
}

// NewWater creates the handler. A currency is required.
func NewWater(cfg chat.WaterConfig, currency *chat.Currency, store BalanceStore, stream StreamStart, notify notifier.Publisher) (*Water, error) {
	if currency == nil || currency.Name == "" {
		return nil, fmt.Errorf("currency required for !water")
	}
	if notify == nil {
		notify = notifier.Discard
	}
	return &Water{
		store:    store,
		stream:   stream,
		notify:   notify,
		currency: currency.Name,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}, nil
}

// Handle runs !water or !water undo.
func (w *Water) Handle(c *chat.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !w.lastUsed.IsZero() && now.Sub(w.lastUsed) < w.cooldown {
		c.Respond("A !water command was recently issued, please wait a bit longer!")
		return nil
	}

	switch c.Next() {
	case "":
		last, ok := w.last()
		if !ok {
			c.Respond("Sorry, the !water command is currently not available :(")
			return nil
		}
		w.lastUsed = now
		amount := int64(now.Sub(last.at) / time.Minute)
		if amount < 0 {
			amount = 0
		}
		reward := &Reward{User: c.User(), Amount: amount, Currency: w.currency}
		w.waters = append(w.waters, waterEntry{at: now, reward: reward})

		c.Respond(fmt.Sprintf("%s, DRINK SOME WATER! %s has been rewarded %d %s for the reminder.",
			c.Streamer(), c.DisplayName(), amount, w.currency))
		w.notify.Publish(notifier.Event{Type: notifier.EventReward, Data: reward})

		channel, user := c.Channel(), c.User()
		c.Spawn("balance", func(ctx context.Context) error {
			if err := w.store.BalanceAdd(ctx, channel, user, amount); err != nil {
				return fmt.Errorf("update water reward: %w", err)
			}
			return nil
		})
	case "undo":
		if err := c.CheckModerator(); err != nil {
			return err
		}
		last, ok := w.last()
		if !ok {
			c.Respond("Sorry, the !water command is currently not available :(")
			return nil
		}
		w.lastUsed = now
		w.waters = w.waters[:len(w.waters)-1]
		if last.reward == nil {
			c.Respond("No one has been rewarded for !water yet cmonBruh")
			return nil
		}

		reward := last.reward
		c.Privmsg(fmt.Sprintf("%s issued a bad !water that is now being undone FeelsBadMan", reward.User))
		channel := c.Channel()
		c.Spawn("undo", func(ctx context.Context) error {
			if err := w.store.BalanceAdd(ctx, channel, reward.User, -reward.Amount); err != nil {
				return fmt.Errorf("undo water reward: %w", err)
			}
			return nil
		})
	default:
		c.Respond("Expected: !water, or !water undo.")
	}
	return nil
}

// last returns the most recent entry, seeding the history with the stream
// start when it is empty.
func (w *Water) last() (waterEntry, bool) {
	if n := len(w.waters); n > 0 {
		return w.waters[n-1], true
	}
	if w.stream == nil {
		return waterEntry{}, false
	}
	started, ok := w.stream.StartedAt()
	if !ok {
		return waterEntry{}, false
	}
	entry := waterEntry{at: started}
	w.waters = append(w.waters, entry)
	return entry, true
}
