package credential

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/task"
)

// OAuth acquires credentials through configured flows.
type OAuth struct {
	flows map[Identity]*Flow
}

var _ Acquirer = (*OAuth)(nil)

// NewOAuth creates an acquirer over flows.
func NewOAuth(flows ...*Flow) *OAuth {
	m := make(map[Identity]*Flow, len(flows))
	for _, f := range flows {
		m[f.id] = f
	}
	return &OAuth{flows: m}
}

// Acquire runs the flow for id and pairs the token with its renewal task.
func (o *OAuth) Acquire(ctx context.Context, id Identity) (*Credential, task.Task, error) {
	f, ok := o.flows[id]
	if !ok {
		return nil, nil, errors.Acquisition(id.String(), stderrors.New("no authorization flow configured"))
	}

	tok, err := f.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	cell := NewCell(tok)
	return &Credential{Identity: id, Cell: cell}, task.New(renewalTaskName(id), f.Renewer(cell).Run), nil
}
