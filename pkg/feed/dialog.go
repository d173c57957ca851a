package feed

import (
	"context"
	"errors"
	"sync"
)

// DialogState is the lifecycle of the single edit dialog a view owns.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
	DialogFailed
)

func (s DialogState) String() string {
	switch s {
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	case DialogFailed:
		return "open_with_error"
	default:
		return "closed"
	}
}

// DialogMode distinguishes a create form from an edit prefilled with a record.
type DialogMode int

const (
	ModeCreate DialogMode = iota
	ModeEdit
)

var (
	// ErrDialogBusy is returned when a second dialog is opened or a submit is already running.
	ErrDialogBusy = errors.New("feed: a dialog is already open")
	// ErrDialogClosed is returned when submitting without an open dialog.
	ErrDialogClosed = errors.New("feed: no dialog is open")
)

// Dialog implements Closed -> Open -> Submitting -> Closed | OpenWithError.
// The form survives a failed submit so no input is lost.
type Dialog struct {
	mu       sync.Mutex
	state    DialogState
	mode     DialogMode
	targetID string
	form     interface{}
	lastErr  error
}

// OpenCreate opens an empty form.
func (d *Dialog) OpenCreate(form interface{}) error {
	return d.open(ModeCreate, "", form)
}

// OpenEdit opens a form prefilled from the record with the given id.
func (d *Dialog) OpenEdit(id string, form interface{}) error {
	return d.open(ModeEdit, id, form)
}

func (d *Dialog) open(mode DialogMode, id string, form interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DialogClosed {
		return ErrDialogBusy
	}
	d.state, d.mode, d.targetID, d.form, d.lastErr = DialogOpen, mode, id, form, nil
	return nil
}

// SetForm replaces the form while the dialog is open.
func (d *Dialog) SetForm(form interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DialogOpen && d.state != DialogFailed {
		return ErrDialogClosed
	}
	d.form = form
	return nil
}

// Submit runs fn with the current form. Success closes the dialog; failure
// returns it to the open state carrying the error.
func (d *Dialog) Submit(ctx context.Context, fn func(ctx context.Context, mode DialogMode, id string, form interface{}) error) error {
	d.mu.Lock()
	switch d.state {
	case DialogSubmitting:
		d.mu.Unlock()
		return ErrDialogBusy
	case DialogClosed:
		d.mu.Unlock()
		return ErrDialogClosed
	}
	d.state = DialogSubmitting
	mode, id, form := d.mode, d.targetID, d.form
	d.mu.Unlock()

	err := fn(ctx, mode, id, form)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state, d.lastErr = DialogFailed, err
		return err
	}
	d.reset()
	return nil
}

// Close dismisses the dialog unless a submit is in flight.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DialogSubmitting {
		return
	}
	d.reset()
}

// State returns the current state.
func (d *Dialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Form returns the retained form contents.
func (d *Dialog) Form() interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}

// Err returns the error of the last failed submit.
func (d *Dialog) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dialog) reset() {
	d.state, d.mode, d.targetID, d.form, d.lastErr = DialogClosed, ModeCreate, "", nil, nil
}
