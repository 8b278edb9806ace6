package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Store holds the bot's persistent state.
type Store struct {
	db *DB
}

// NewStore wraps an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// BalanceAdd adds amount, which may be negative, to a user's balance.
func (s *Store) BalanceAdd(ctx context.Context, channel, user string, amount int64) error {
	user = strings.ToLower(user)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		b := &Balance{}
		err := tx.NewSelect().Model(b).
			Where("channel = ?", channel).
			Where("username = ?", user).
			Scan(ctx)
		now := time.Now().UTC()

		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			b = &Balance{Channel: channel, User: user, Amount: amount, UpdatedAt: now}
			_, err = tx.NewInsert().Model(b).Exec(ctx)
		case err == nil:
			b.Amount += amount
			b.UpdatedAt = now
			_, err = tx.NewUpdate().Model(b).WherePK().Exec(ctx)
		}
		if err != nil {
			return fmt.Errorf("balance add %s/%s: %w", channel, user, err)
		}
		return nil
	})
	return storeErr(err, "balance")
}

// Balance returns a user's balance, zero when the user has none.
func (s *Store) Balance(ctx context.Context, channel, user string) (int64, error) {
	b := &Balance{}
	err := s.db.Bun.NewSelect().Model(b).
		Where("channel = ?", channel).
		Where("username = ?", strings.ToLower(user)).
		Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr(err, "balance")
	}
	return b.Amount, nil
}

// EditCommand creates or replaces a custom command.
func (s *Store) EditCommand(ctx context.Context, channel, name, text string) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Command)(nil)).
			Where("channel = ?", channel).
			Where("name = ?", name).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Command{Channel: channel, Name: name, Text: text}).Exec(ctx)
		return err
	})
	return storeErr(err, "command")
}

// DeleteCommand removes a custom command and reports whether it existed.
func (s *Store) DeleteCommand(ctx context.Context, channel, name string) (bool, error) {
	res, err := s.db.Bun.NewDelete().Model((*Command)(nil)).
		Where("channel = ?", channel).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return false, storeErr(err, "command")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err, "command")
	}
	return n > 0, nil
}

// Commands lists a channel's custom commands by name.
func (s *Store) Commands(ctx context.Context, channel string) ([]Command, error) {
	var out []Command
	err := s.db.Bun.NewSelect().Model(&out).
		Where("channel = ?", channel).
		Order("name ASC").
		Scan(ctx)
	return out, storeErr(err, "command")
}

// BadWords lists every filtered word.
func (s *Store) BadWords(ctx context.Context) ([]BadWord, error) {
	var out []BadWord
	err := s.db.Bun.NewSelect().Model(&out).Order("word ASC").Scan(ctx)
	return out, storeErr(err, "bad word")
}

// EditBadWord creates or replaces a filtered word.
func (s *Store) EditBadWord(ctx context.Context, word, why string) error {
	word = strings.ToLower(word)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*BadWord)(nil)).Where("word = ?", word).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&BadWord{Word: word, Why: why}).Exec(ctx)
		return err
	})
	return storeErr(err, "bad word")
}

// DeleteBadWord removes a filtered word.
func (s *Store) DeleteBadWord(ctx context.Context, word string) error {
	_, err := s.db.Bun.NewDelete().Model((*BadWord)(nil)).
		Where("word = ?", strings.ToLower(word)).
		Exec(ctx)
	return storeErr(err, "bad word")
}
