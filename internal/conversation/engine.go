// Package conversation drives the WhatsApp booking dialog. Each inbound
// message advances the sender's session one step and produces exactly one
// reply; the engine never mutates the session when it cannot make progress.
package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/medagenda/or-assistant/internal/directory"
	"github.com/medagenda/or-assistant/internal/nlu"
	"github.com/medagenda/or-assistant/internal/observability/metrics"
	"github.com/medagenda/or-assistant/internal/reservation"
	"github.com/medagenda/or-assistant/internal/schedule"
	"github.com/medagenda/or-assistant/internal/session"
	"github.com/medagenda/or-assistant/pkg/logging"
)

// Directory resolves senders and serves catalogs for the prompts.
type Directory interface {
	GetDoctorByPhone(ctx context.Context, e164 string) (*directory.Doctor, error)
	ListProcedures(ctx context.Context) ([]directory.Procedure, error)
	ListRooms(ctx context.Context) ([]directory.Room, error)
}

// Scheduler computes free slots for a room on a date.
type Scheduler interface {
	AvailableSlots(ctx context.Context, roomID int, day time.Time, durationMin int) ([]schedule.Slot, error)
}

// Reservations is the dialog's view of the booking repository.
type Reservations interface {
	ListForDoctor(ctx context.Context, doctorID int, from, to *time.Time) ([]reservation.Reservation, error)
	Create(ctx context.Context, p reservation.CreateParams) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id string) error
	Hydrate(ctx context.Context, items []reservation.Reservation) ([]reservation.Hydrated, error)
}

// Config wires the engine's collaborators.
type Config struct {
	Directory    Directory
	Scheduler    Scheduler
	Reservations Reservations
	Sessions     session.Store
	Location     *time.Location
	Year         int
	Now          func() time.Time
	Logger       *logging.Logger
	Metrics      *metrics.ConversationMetrics
}

// Engine is the dialog state machine.
type Engine struct {
	dir      Directory
	sched    Scheduler
	res      Reservations
	sessions session.Store
	loc      *time.Location
	year     int
	now      func() time.Time
	log      *logging.Logger
	metrics  *metrics.ConversationMetrics
}

// NewEngine builds the dialog engine. All collaborators except Metrics are
// required.
func NewEngine(cfg Config) *Engine {
	if cfg.Directory == nil || cfg.Scheduler == nil || cfg.Reservations == nil || cfg.Sessions == nil {
		panic("conversation: missing required dependency")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		dir:      cfg.Directory,
		sched:    cfg.Scheduler,
		res:      cfg.Reservations,
		sessions: cfg.Sessions,
		loc:      cfg.Location,
		year:     cfg.Year,
		now:      cfg.Now,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Handle processes one inbound message and returns the reply text. It never
// returns an error: any failure leaves the session as it was and asks the
// sender to reset.
func (e *Engine) Handle(ctx context.Context, sender, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("conversation: panic in turn", "sender", sender, "panic", r)
			reply = replyTurnError
		}
	}()
	out, err := e.process(ctx, sender, strings.TrimSpace(text))
	if err != nil {
		e.log.Error("conversation: turn failed", "sender", sender, "error", err)
		return replyTurnError
	}
	return out
}

func (e *Engine) process(ctx context.Context, sender, text string) (string, error) {
	if strings.EqualFold(text, "reset") {
		if err := e.sessions.Clear(ctx, sender); err != nil {
			return "", err
		}
		return e.freshArrival(ctx, sender)
	}

	sess, err := e.sessions.Get(ctx, sender)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return e.freshArrival(ctx, sender)
	}

	switch sess.Step {
	case session.StepMenuRoot:
		return e.menuRoot(ctx, sender, text)
	case session.StepMenuAuthenticated:
		return e.menuAuthenticated(ctx, sender, sess, text)
	case session.StepCompletePartialIntent:
		return e.completePartial(ctx, sender, sess, text)
	case session.StepSelectProcedure:
		return e.selectProcedure(ctx, sender, sess, text)
	case session.StepSelectRoom:
		return e.selectRoom(ctx, sender, sess, text)
	case session.StepSelectDate:
		return e.selectDate(ctx, sender, sess, text)
	case session.StepSelectSlot:
		return e.selectSlot(ctx, sender, sess, text)
	case session.StepCancelSelect:
		return e.cancelSelect(ctx, sender, sess, text)
	default:
		return replyFallback, nil
	}
}

// freshArrival greets a sender with no session: doctors get the booking menu,
// everyone else the public one.
func (e *Engine) freshArrival(ctx context.Context, sender string) (string, error) {
	doc, err := e.dir.GetDoctorByPhone(ctx, sender)
	if err != nil {
		return "", err
	}
	if doc == nil {
		if err := e.sessions.Put(ctx, sender, session.MenuRoot()); err != nil {
			return "", err
		}
		return replyPublicMenu, nil
	}
	if err := e.sessions.Put(ctx, sender, session.MenuAuthenticated(doc)); err != nil {
		return "", err
	}
	return greetingDoctor(doc.Name), nil
}

func (e *Engine) menuRoot(ctx context.Context, sender, text string) (string, error) {
	switch strings.TrimSpace(text) {
	case "1":
		return "Nuestro directorio médico está disponible en recepción y en el sitio del hospital.", nil
	case "2":
		return "Ofrecemos cirugía general, ortopedia, ginecología y endoscopia. Para informes llame a recepción.", nil
	case "3":
		return "Para agendar una cita llame a recepción. Este canal es exclusivo para médicos registrados.", nil
	default:
		return replyPublicMenu, nil
	}
}

func (e *Engine) menuAuthenticated(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	switch strings.TrimSpace(text) {
	case "1":
		procs, err := e.dir.ListProcedures(ctx)
		if err != nil {
			return "", err
		}
		if err := e.sessions.Put(ctx, sender, session.SelectProcedure(sess.Doctor)); err != nil {
			return "", err
		}
		return askProcedure(procs), nil

	case "2":
		items, err := e.upcoming(ctx, sess.Doctor.ID)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return replyNoUpcoming, nil
		}
		return upcomingList(items, e.loc), nil

	case "3":
		items, err := e.upcoming(ctx, sess.Doctor.ID)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return replyNoCancellable, nil
		}
		if err := e.sessions.Put(ctx, sender, session.CancelSelect(sess.Doctor, items)); err != nil {
			return "", err
		}
		return cancellableList(items, e.loc), nil
	}

	if nlu.DetectBookingIntent(text) {
		return e.freeTextIntent(ctx, sender, sess.Doctor, text)
	}
	return replyDoctorMenuBody, nil
}

// upcoming lists the doctor's reservations from now on, hydrated and capped
// for display.
func (e *Engine) upcoming(ctx context.Context, doctorID int) ([]reservation.Hydrated, error) {
	from := e.now()
	recs, err := e.res.ListForDoctor(ctx, doctorID, &from, nil)
	if err != nil {
		return nil, err
	}
	if len(recs) > maxListed {
		recs = recs[:maxListed]
	}
	return e.res.Hydrate(ctx, recs)
}

// freeTextIntent handles a full-sentence booking request from the main menu:
// whatever the text resolves (procedure, room, date) is kept. A missing
// procedure or room always goes through the partial-completion step, so the
// combined answer ("2C") stays available regardless of what else resolved.
func (e *Engine) freeTextIntent(ctx context.Context, sender string, doc *directory.Doctor, text string) (string, error) {
	procs, err := e.dir.ListProcedures(ctx)
	if err != nil {
		return "", err
	}
	rooms, err := e.dir.ListRooms(ctx)
	if err != nil {
		return "", err
	}

	proc := nlu.ExtractProcedure(text, procs)
	room := nlu.ExtractRoom(text, rooms)
	date := nlu.ParseDate(text, e.year, e.loc)

	switch {
	case proc != nil && room != nil && !date.IsZero():
		return e.offerSlotsOrRetry(ctx, sender, doc, proc, room, date)
	case proc != nil && room != nil:
		if err := e.sessions.Put(ctx, sender, session.SelectDate(doc, proc, room)); err != nil {
			return "", err
		}
		return replyAskDate, nil
	default:
		if err := e.sessions.Put(ctx, sender, session.CompletePartialIntent(doc, proc, room, date)); err != nil {
			return "", err
		}
		return askMissingPartial(proc == nil, room == nil, procs, rooms), nil
	}
}

// completePartial fills whichever of procedure/room a free-text request left
// unresolved; the date is already pinned in the session.
func (e *Engine) completePartial(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	procs, err := e.dir.ListProcedures(ctx)
	if err != nil {
		return "", err
	}
	rooms, err := e.dir.ListRooms(ctx)
	if err != nil {
		return "", err
	}

	proc, room := sess.Procedure, sess.Room
	if roomTok, procTok, ok := nlu.SplitCombined(text); ok {
		if room == nil {
			room = nlu.ExtractRoom(roomTok, rooms)
		}
		if proc == nil {
			proc = nlu.ExtractProcedure(procTok, procs)
		}
	} else {
		if proc == nil {
			proc = nlu.ExtractProcedure(text, procs)
		}
		if room == nil {
			room = nlu.ExtractRoom(text, rooms)
		}
	}

	if proc == nil || room == nil {
		return replyPartialUnresolved, nil
	}
	if sess.Date.IsZero() {
		if err := e.sessions.Put(ctx, sender, session.SelectDate(sess.Doctor, proc, room)); err != nil {
			return "", err
		}
		return replyAskDate, nil
	}
	return e.offerSlotsOrRetry(ctx, sender, sess.Doctor, proc, room, sess.Date)
}

func (e *Engine) selectProcedure(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	procs, err := e.dir.ListProcedures(ctx)
	if err != nil {
		return "", err
	}
	proc := matchProcedure(text, procs)
	if proc == nil {
		return replyUnknownProcedure, nil
	}
	rooms, err := e.dir.ListRooms(ctx)
	if err != nil {
		return "", err
	}
	if err := e.sessions.Put(ctx, sender, session.SelectRoom(sess.Doctor, proc)); err != nil {
		return "", err
	}
	return askRoom(proc, rooms), nil
}

func (e *Engine) selectRoom(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	rooms, err := e.dir.ListRooms(ctx)
	if err != nil {
		return "", err
	}
	room := matchRoom(text, rooms)
	if room == nil {
		return replyUnknownRoom, nil
	}
	if err := e.sessions.Put(ctx, sender, session.SelectDate(sess.Doctor, sess.Procedure, room)); err != nil {
		return "", err
	}
	return replyAskDate, nil
}

func (e *Engine) selectDate(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	date := nlu.ParseDate(text, e.year, e.loc)
	if date.IsZero() {
		return replyBadDate, nil
	}
	today := e.today()
	if date.Before(today) {
		return replyPastDate, nil
	}
	return e.offerSlotsOrRetry(ctx, sender, sess.Doctor, sess.Procedure, sess.Room, date)
}

// offerSlotsOrRetry computes availability for the completed selection. With
// free slots the dialog advances to the pick; an empty day keeps the sender
// on the date question.
func (e *Engine) offerSlotsOrRetry(ctx context.Context, sender string, doc *directory.Doctor, proc *directory.Procedure, room *directory.Room, date time.Time) (string, error) {
	slots, err := e.sched.AvailableSlots(ctx, room.ID, date, proc.DurationMin)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		if err := e.sessions.Put(ctx, sender, session.SelectDate(doc, proc, room)); err != nil {
			return "", err
		}
		return replyNoSlots, nil
	}
	if err := e.sessions.Put(ctx, sender, session.SelectSlot(doc, proc, room, date, slots)); err != nil {
		return "", err
	}
	return offerSlots(room, date, e.loc, slots), nil
}

func (e *Engine) selectSlot(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(text), "ver") {
		return showSlots(sess.Slots), nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > len(sess.Slots) {
		return replyBadSlotOption, nil
	}
	slot := sess.Slots[idx-1]

	rec, err := e.res.Create(ctx, reservation.CreateParams{
		RoomID:      sess.Room.ID,
		DoctorID:    sess.Doctor.ID,
		ProcedureID: sess.Procedure.ID,
		Start:       slot.Start,
		End:         slot.End,
	})
	if errors.Is(err, reservation.ErrConflict) {
		e.metrics.BookingConflict()
		return e.slotConflict(ctx, sender, sess)
	}
	if err != nil {
		return "", err
	}

	e.metrics.BookingConfirmed()
	if err := e.sessions.Clear(ctx, sender); err != nil {
		return "", err
	}
	return bookingConfirmed(sess.Doctor.Name, sess.Procedure.Name, sess.Room.Name,
		sess.Date, e.loc, slot.Label, rec.ID), nil
}

// slotConflict recomputes the day after a lost race: with slots left the
// sender picks again from the fresh list, otherwise the session ends.
func (e *Engine) slotConflict(ctx context.Context, sender string, sess *session.Session) (string, error) {
	slots, err := e.sched.AvailableSlots(ctx, sess.Room.ID, sess.Date, sess.Procedure.DurationMin)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		if err := e.sessions.Clear(ctx, sender); err != nil {
			return "", err
		}
		return replySlotsGone, nil
	}
	refreshed := session.SelectSlot(sess.Doctor, sess.Procedure, sess.Room, sess.Date, slots)
	if err := e.sessions.Put(ctx, sender, refreshed); err != nil {
		return "", err
	}
	return slotTaken(slots), nil
}

func (e *Engine) cancelSelect(ctx context.Context, sender string, sess *session.Session, text string) (string, error) {
	txt := strings.TrimSpace(text)
	if strings.EqualFold(txt, "salir") {
		if err := e.sessions.Clear(ctx, sender); err != nil {
			return "", err
		}
		return replyCancelDone, nil
	}
	idx, err := strconv.Atoi(txt)
	if err != nil || idx < 1 || idx > len(sess.Cancel) {
		return badCancelOption(len(sess.Cancel)), nil
	}
	target := sess.Cancel[idx-1]
	if err := e.sessions.Clear(ctx, sender); err != nil {
		return "", err
	}
	if err := e.res.Cancel(ctx, target.ID); err != nil {
		e.log.Error("conversation: cancel failed", "reservation_id", target.ID, "error", err)
		return replyCancelFailed, nil
	}
	e.metrics.ReservationCancelled()
	return cancelConfirmed(target.ID), nil
}

// today is midnight of the current clinic day.
func (e *Engine) today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, e.loc)
}

// matchProcedure resolves a list answer: exact id, or the input as a
// case-insensitive substring of a catalog name ("cole" matches
// "Colecistectomía"). The letter fallback is reserved for the partial-intent
// prompt whose list is lettered.
func matchProcedure(text string, procs []directory.Procedure) *directory.Procedure {
	if id, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
		for i := range procs {
			if procs[i].ID == id {
				return &procs[i]
			}
		}
		return nil
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	for i := range procs {
		if name := strings.ToLower(procs[i].Name); name != "" && strings.Contains(name, lower) {
			return &procs[i]
		}
	}
	return nil
}

// matchRoom resolves a list answer: exact id or case-insensitive exact name.
func matchRoom(text string, rooms []directory.Room) *directory.Room {
	txt := strings.TrimSpace(text)
	if id, err := strconv.Atoi(txt); err == nil {
		for i := range rooms {
			if rooms[i].ID == id {
				return &rooms[i]
			}
		}
		return nil
	}
	for i := range rooms {
		if strings.EqualFold(rooms[i].Name, txt) {
			return &rooms[i]
		}
	}
	return nil
}
