// Package wizard drives multi-page forms that accumulate one snapshot across
// pages before a single final submission.
package wizard

import "github.com/gabrielmiguelok/eventadmin/pkg/forms"

// Snapshot is the accumulated value record of one wizard kind. Kind tags the
// record so a snapshot can never be handed to a wizard of another kind.
type Snapshot interface {
	Kind() string
}

// Rule validates the fields a page owns. A nil or empty result means valid.
type Rule[S Snapshot] func(S) forms.Errors

// Page describes one step of a wizard.
type Page[S Snapshot] struct {
	Name string

	// Rule is applied when the page is current. Nil accepts everything.
	Rule Rule[S]

	// Hidden removes the page from every session of this wizard kind.
	Hidden bool

	// Visible is evaluated against the current snapshot before the page is
	// entered. Nil means visible.
	Visible func(S) bool
}

func (p Page[S]) visible(values S) bool {
	if p.Hidden {
		return false
	}
	return p.Visible == nil || p.Visible(values)
}

func (p Page[S]) check(values S) forms.Errors {
	if p.Rule == nil {
		return forms.Errors{}
	}
	errs := p.Rule(values)
	if errs == nil {
		errs = forms.Errors{}
	}
	return errs
}

// Step is the render-side view of a page, used to draw the step indicator.
type Step struct {
	Index   int
	Name    string
	Active  bool
	Done    bool
	Visible bool
}
