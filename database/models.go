package database

import (
	"time"

	"github.com/uptrace/bun"
)

// Balance is a user's currency balance in one channel.
type Balance struct {
	bun.BaseModel `bun:"table:balances,alias:b"`

	Channel   string    `bun:"channel,pk"`
	User      string    `bun:"username,pk"`
	Amount    int64     `bun:"amount,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Command is a custom chat command.
type Command struct {
	bun.BaseModel `bun:"table:commands,alias:c"`

	Channel string `bun:"channel,pk"`
	Name    string `bun:"name,pk"`
	Text    string `bun:"text,notnull"`
}

// BadWord is a filtered word and the reason it is filtered.
type BadWord struct {
	bun.BaseModel `bun:"table:bad_words,alias:bw"`

	Word string `bun:"word,pk"`
	Why  string `bun:"why"`
}

// Models lists every table the bot owns, in creation order.
func Models() []interface{} {
	return []interface{}{(*Balance)(nil), (*Command)(nil), (*BadWord)(nil)}
}
