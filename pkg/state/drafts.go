package state

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultDraftTTL is how long an untouched draft survives.
const DefaultDraftTTL = 24 * time.Hour

// Draft is a saved, partially filled wizard.
type Draft[S any] struct {
	Kind     string    `msgpack:"kind"`
	WizardID string    `msgpack:"id"`
	Index    int       `msgpack:"index"`
	Values   S         `msgpack:"values"`
	SavedAt  time.Time `msgpack:"saved_at"`
}

// Drafts persists the drafts of one wizard kind.
type Drafts[S any] struct {
	kind  string
	store *TypedStore[Draft[S]]
	keys  Store
	ttl   time.Duration
	now   func() time.Time
}

// DraftsOption configures Drafts.
type DraftsOption func(*draftsOptions)

type draftsOptions struct {
	ttl time.Duration
	now func() time.Time
}

// WithDraftTTL sets the draft lifetime.
func WithDraftTTL(ttl time.Duration) DraftsOption {
	return func(o *draftsOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock sets the time source used for SavedAt.
func WithClock(now func() time.Time) DraftsOption {
	return func(o *draftsOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewDrafts creates a draft repository for wizards of kind.
func NewDrafts[S any](store Store, kind string, opts ...DraftsOption) *Drafts[S] {
	o := draftsOptions{ttl: DefaultDraftTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Drafts[S]{
		kind:  kind,
		store: NewTypedStore[Draft[S]](store, nil),
		keys:  store,
		ttl:   o.ttl,
		now:   o.now,
	}
}

func (d *Drafts[S]) prefix() string {
	return "draft:" + d.kind + ":"
}

func (d *Drafts[S]) key(wizardID string) string {
	return d.prefix() + wizardID
}

// Save stores the wizard's page index and values, resetting the TTL.
func (d *Drafts[S]) Save(ctx context.Context, wizardID string, index int, values S) error {
	if wizardID == "" {
		return errors.New("state: draft needs a wizard id")
	}
	draft := Draft[S]{
		Kind:     d.kind,
		WizardID: wizardID,
		Index:    index,
		Values:   values,
		SavedAt:  d.now().UTC(),
	}
	return d.store.Set(ctx, d.key(wizardID), draft, d.ttl)
}

// Load returns the draft saved for wizardID. ErrKeyNotFound means none.
func (d *Drafts[S]) Load(ctx context.Context, wizardID string) (Draft[S], error) {
	draft, err := d.store.Get(ctx, d.key(wizardID))
	if err != nil {
		return Draft[S]{}, err
	}
	if draft.Kind != d.kind {
		return Draft[S]{}, ErrInvalidData
	}
	return draft, nil
}

// Delete drops the draft for wizardID.
func (d *Drafts[S]) Delete(ctx context.Context, wizardID string) error {
	return d.store.Delete(ctx, d.key(wizardID))
}

// IDs returns the wizard ids with a live draft.
func (d *Drafts[S]) IDs(ctx context.Context) ([]string, error) {
	keys, err := d.keys.Keys(ctx, d.prefix()+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, d.prefix())
	}
	return ids, nil
}
