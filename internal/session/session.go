// Package session holds per-sender conversational state: the current dialog
// step and the selections accumulated so far. The store interface lets the
// dialog engine swap the in-memory map for Redis without touching dialog
// logic.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medagenda/or-assistant/internal/directory"
	"github.com/medagenda/or-assistant/internal/reservation"
	"github.com/medagenda/or-assistant/internal/schedule"
)

// Step identifies the dialog state a session is in.
type Step string

const (
	StepMenuRoot              Step = "MENU_ROOT"
	StepMenuAuthenticated     Step = "MENU_AUTHENTICATED"
	StepSelectProcedure       Step = "SELECT_PROCEDURE"
	StepSelectRoom            Step = "SELECT_ROOM"
	StepSelectDate            Step = "SELECT_DATE"
	StepSelectSlot            Step = "SELECT_SLOT"
	StepCompletePartialIntent Step = "COMPLETE_PARTIAL_INTENT"
	StepCancelSelect          Step = "CANCEL_SELECT"
)

// ErrInvalidSession rejects a write whose payload is missing fields the step
// requires; the constructors below are the supported way to build sessions.
var ErrInvalidSession = errors.New("session: payload missing fields required by step")

// Session is the accumulated state of one conversation. Which fields must
// be set depends on Step; Validate enforces the pairing.
type Session struct {
	Step      Step                   `json:"step"`
	Doctor    *directory.Doctor      `json:"doctor,omitempty"`
	Procedure *directory.Procedure   `json:"procedure,omitempty"`
	Room      *directory.Room        `json:"room,omitempty"`
	Date      time.Time              `json:"date,omitempty"`
	Slots     []schedule.Slot        `json:"slots,omitempty"`
	Cancel    []reservation.Hydrated `json:"cancel_list,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// MenuRoot is the unauthenticated informational menu.
func MenuRoot() *Session {
	return &Session{Step: StepMenuRoot}
}

// MenuAuthenticated is the doctor main menu.
func MenuAuthenticated(doc *directory.Doctor) *Session {
	return &Session{Step: StepMenuAuthenticated, Doctor: doc}
}

// SelectProcedure awaits a procedure choice.
func SelectProcedure(doc *directory.Doctor) *Session {
	return &Session{Step: StepSelectProcedure, Doctor: doc}
}

// SelectRoom awaits a room choice for the chosen procedure.
func SelectRoom(doc *directory.Doctor, proc *directory.Procedure) *Session {
	return &Session{Step: StepSelectRoom, Doctor: doc, Procedure: proc}
}

// SelectDate awaits a calendar date for the chosen procedure and room.
func SelectDate(doc *directory.Doctor, proc *directory.Procedure, room *directory.Room) *Session {
	return &Session{Step: StepSelectDate, Doctor: doc, Procedure: proc, Room: room}
}

// SelectSlot awaits a pick from the computed slot list.
func SelectSlot(doc *directory.Doctor, proc *directory.Procedure, room *directory.Room, date time.Time, slots []schedule.Slot) *Session {
	return &Session{Step: StepSelectSlot, Doctor: doc, Procedure: proc, Room: room, Date: date, Slots: slots}
}

// CompletePartialIntent holds whatever a free-text booking request already
// resolved while the dialog asks for the rest.
func CompletePartialIntent(doc *directory.Doctor, proc *directory.Procedure, room *directory.Room, date time.Time) *Session {
	return &Session{Step: StepCompletePartialIntent, Doctor: doc, Procedure: proc, Room: room, Date: date}
}

// CancelSelect awaits a pick from the cancellable reservation list.
func CancelSelect(doc *directory.Doctor, list []reservation.Hydrated) *Session {
	return &Session{Step: StepCancelSelect, Doctor: doc, Cancel: list}
}

// Validate checks that every field the step requires is present.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidSession)
	}
	need := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidSession, s.Step, field)
		}
		return nil
	}
	switch s.Step {
	case StepMenuRoot:
		return nil
	case StepMenuAuthenticated, StepSelectProcedure:
		return need(s.Doctor != nil, "doctor")
	case StepSelectRoom:
		if err := need(s.Doctor != nil, "doctor"); err != nil {
			return err
		}
		return need(s.Procedure != nil, "procedure")
	case StepSelectDate:
		if err := need(s.Doctor != nil, "doctor"); err != nil {
			return err
		}
		if err := need(s.Procedure != nil, "procedure"); err != nil {
			return err
		}
		return need(s.Room != nil, "room")
	case StepSelectSlot:
		if err := need(s.Doctor != nil, "doctor"); err != nil {
			return err
		}
		if err := need(s.Procedure != nil, "procedure"); err != nil {
			return err
		}
		if err := need(s.Room != nil, "room"); err != nil {
			return err
		}
		if err := need(!s.Date.IsZero(), "date"); err != nil {
			return err
		}
		return need(len(s.Slots) > 0, "slots")
	case StepCompletePartialIntent:
		return need(s.Doctor != nil, "doctor")
	case StepCancelSelect:
		if err := need(s.Doctor != nil, "doctor"); err != nil {
			return err
		}
		return need(len(s.Cancel) > 0, "cancel list")
	default:
		return fmt.Errorf("%w: unknown step %q", ErrInvalidSession, s.Step)
	}
}

// Store is the session lifetime owner. Implementations return (nil, nil)
// from Get for unseen senders.
type Store interface {
	Get(ctx context.Context, sender string) (*Session, error)
	Put(ctx context.Context, sender string, s *Session) error
	Clear(ctx context.Context, sender string) error
}
