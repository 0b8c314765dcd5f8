/*
Package overtime manages group overtime activities and their mirrored
effect on the compensatory (補休) remaining balance of every participant.

BALANCE MIRRORING:
  create:  append record, then credit hours to each participant
  update:  debit OLD hours from each OLD participant, persist the new
           fields, then credit NEW hours to each NEW participant
  delete:  debit hours from each participant, then remove the record

  Update is deliberately a full debit-then-credit, never a delta. With
  floor-at-zero debits the two are not equivalent: a participant whose
  balance is below the old grant is not fully reversed before the new
  credit lands. That sequence is the contract.

PARTIAL FAILURE:
  Participant loops run sequentially with no rollback. A failure mid
  loop stops the walk and surfaces a *PartialError that lists exactly
  which balances were written, which email failed, and which were never
  reached, so an operator can reconcile by hand.

NOTE ON UNITS:
  The hours field is day-denominated despite its name. It is added to
  and subtracted from a balance that counts days.
*/
package overtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/leave"
)

// Service coordinates the store and ledger for overtime activities.
type Service struct {
	store  leave.Store
	ledger *leave.Ledger
}

// NewService creates an overtime service.
func NewService(store leave.Store, ledger *leave.Ledger) *Service {
	return &Service{store: store, ledger: ledger}
}

// =============================================================================
// PARTIAL ERROR
// =============================================================================

// PartialError reports a participant loop that failed mid-way. The
// activity record and the balances in Applied are already written;
// FailedEmail and everything in Skipped were not.
type PartialError struct {
	Op          string // "create", "update" or "delete"
	ActivityID  int
	Applied     []string
	FailedEmail string
	Skipped     []string
	Err         error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("overtime %s %d partially applied: %d balances written, failed at %s: %v",
		e.Op, e.ActivityID, len(e.Applied), e.FailedEmail, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// AsPartial extracts a PartialError if err carries one.
func AsPartial(err error) (*PartialError, bool) {
	var pe *PartialError
	ok := errors.As(err, &pe)
	return pe, ok
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Input carries the mutable fields of an activity.
type Input struct {
	Name         string
	Date         time.Time
	Hours        decimal.Decimal
	Participants []string
	Description  string
}

func (in *Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return leave.Validationf("name", "required")
	}
	if in.Date.IsZero() {
		return leave.Validationf("date", "required")
	}
	if !in.Hours.IsPositive() {
		return leave.Validationf("hours", "must be positive, got %s", in.Hours)
	}
	if len(leave.NormalizeEmails(in.Participants)) == 0 {
		return leave.Validationf("participants", "at least one participant required")
	}
	return nil
}

// Create validates the input, appends the activity record, then
// credits every participant. The record persists before any credit, so
// a mid-loop failure leaves the activity on file with some balances
// unwritten (reported via PartialError).
func (s *Service) Create(ctx context.Context, in Input) (*leave.OvertimeActivity, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	participants := leave.NormalizeEmails(in.Participants)

	activity, err := s.store.AppendOvertimeActivity(ctx, leave.OvertimeActivity{
		Name:         in.Name,
		Date:         in.Date,
		Hours:        in.Hours,
		Participants: participants,
		Description:  in.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := s.creditAll(ctx, "create", activity.ID, participants, in.Hours); err != nil {
		return nil, err
	}
	return activity, nil
}

// Update reverses the old grant in full for every OLD participant,
// persists the new fields, then applies the new grant to every NEW
// participant. An employee present in both lists is debited then
// credited, never netted.
func (s *Service) Update(ctx context.Context, id int, in Input) (*leave.OvertimeActivity, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	old, err := s.store.GetOvertimeActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	oldParticipants := leave.NormalizeEmails(old.Participants)
	newParticipants := leave.NormalizeEmails(in.Participants)

	if err := s.debitAll(ctx, "update", id, oldParticipants, old.Hours); err != nil {
		return nil, err
	}

	updated, err := s.store.SetOvertimeActivityFields(ctx, id, leave.ActivityUpdate{
		Name:         in.Name,
		Date:         in.Date,
		Hours:        in.Hours,
		Participants: newParticipants,
		Description:  in.Description,
	})
	if err != nil {
		// Old grants are already reversed at this point.
		return nil, fmt.Errorf("overtime update %d: grants reversed but record not updated: %w", id, err)
	}

	if err := s.creditAll(ctx, "update", id, newParticipants, in.Hours); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete reverses the grant for every participant, then removes the
// record. A mid-loop failure keeps the record so the remaining debits
// can be retried.
func (s *Service) Delete(ctx context.Context, id int) error {
	activity, err := s.store.GetOvertimeActivity(ctx, id)
	if err != nil {
		return err
	}
	participants := leave.NormalizeEmails(activity.Participants)

	if err := s.debitAll(ctx, "delete", id, participants, activity.Hours); err != nil {
		return err
	}

	deleted, err := s.store.DeleteOvertimeActivity(ctx, id)
	if err != nil {
		return fmt.Errorf("overtime delete %d: balances reversed but record not removed: %w", id, err)
	}
	if !deleted {
		return leave.ErrActivityNotFound
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// View is an activity annotated with participant display names for the
// admin listing.
type View struct {
	leave.OvertimeActivity
	ParticipantNames []string
}

// ListByPeriod returns activities whose date falls in the given year
// and/or month (zero means "any"), oldest first, with participant
// names resolved from the employee store. Unknown emails fall back to
// the raw address.
func (s *Service) ListByPeriod(ctx context.Context, year int, month time.Month) ([]View, error) {
	activities, err := s.store.ListOvertimeActivities(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	nameByEmail := make(map[string]string, len(employees))
	for _, e := range employees {
		nameByEmail[strings.ToLower(e.Email)] = e.Name
	}

	out := make([]View, 0, len(activities))
	for _, a := range activities {
		if year != 0 && a.Date.Year() != year {
			continue
		}
		if month != 0 && a.Date.Month() != month {
			continue
		}
		names := make([]string, len(a.Participants))
		for i, email := range a.Participants {
			if name, ok := nameByEmail[strings.ToLower(email)]; ok {
				names[i] = name
			} else {
				names[i] = email
			}
		}
		out = append(out, View{OvertimeActivity: a, ParticipantNames: names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// PARTICIPANT LOOPS
// =============================================================================

func (s *Service) creditAll(ctx context.Context, op string, id int, emails []string, hours decimal.Decimal) error {
	for i, email := range emails {
		if _, err := s.ledger.Credit(ctx, email, leave.CategoryCompensatory, hours); err != nil {
			return &PartialError{
				Op:          op,
				ActivityID:  id,
				Applied:     append([]string(nil), emails[:i]...),
				FailedEmail: email,
				Skipped:     append([]string(nil), emails[i+1:]...),
				Err:         err,
			}
		}
	}
	return nil
}

func (s *Service) debitAll(ctx context.Context, op string, id int, emails []string, hours decimal.Decimal) error {
	for i, email := range emails {
		if _, err := s.ledger.Debit(ctx, email, leave.CategoryCompensatory, hours); err != nil {
			return &PartialError{
				Op:          op,
				ActivityID:  id,
				Applied:     append([]string(nil), emails[:i]...),
				FailedEmail: email,
				Skipped:     append([]string(nil), emails[i+1:]...),
				Err:         err,
			}
		}
	}
	return nil
}
