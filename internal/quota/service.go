package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/metrics"
)

// Service owns the per-user and global daily generation budgets. Every
// operation runs inside a single store transaction; the only writers of the
// quota records are the Reserve/Confirm/Release trio below.
type Service struct {
	store Store
	cfg   config.QuotaConfig
	now   func() time.Time
}

func NewService(store Store, cfg config.QuotaConfig) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Reserve claims one generation slot for the user, or explains the refusal.
// Exactly one of the three return values is meaningful: a Reservation on
// allow, a Denial on refusal, an error when the store itself failed (the
// caller must fail closed — no generation without a reservation).
func (s *Service) Reserve(ctx context.Context, userID uuid.UUID) (*Reservation, *Denial, error) {
	if userID == uuid.Nil {
		return nil, nil, fmt.Errorf("reserve: empty user id")
	}

	var (
		res    *Reservation
		denial *Denial
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		now := s.now().UTC()
		today := dayKey(now)

		user, err := tx.UserDay(ctx, userID)
		if err != nil {
			return err
		}
		// Lazy reset: a stale day means the counters no longer apply.
		// No separate reset write — the save below carries the new day.
		if user.Day != today {
			user.Day = today
			user.Confirmed = 0
			user.Reserved = 0
		}

		budget, err := tx.BudgetDay(ctx, today)
		if err != nil {
			return err
		}

		userTotal := user.Confirmed + user.Reserved
		if userTotal >= s.cfg.UserDailyLimit {
			denial = &Denial{Reason: ReasonDailyLimit, RetryAfter: secondsToMidnightUTC(now)}
			return nil
		}
		if budget.ConfirmedSpend+budget.ReservedSpend >= s.cfg.DailyBudgetUSD {
			denial = &Denial{Reason: ReasonBudgetCap, RetryAfter: secondsToMidnightUTC(now)}
			return nil
		}

		id := uuid.New()
		user.Reserved++
		user.LastReservationID = id.String()
		budget.ReservedSpend += s.cfg.ImageCostUSD

		if err := tx.SaveUserDay(ctx, user); err != nil {
			return err
		}
		if err := tx.SaveBudgetDay(ctx, budget); err != nil {
			return err
		}

		res = &Reservation{
			ID:        id,
			UserID:    userID,
			Day:       today,
			Cost:      s.cfg.ImageCostUSD,
			Remaining: s.cfg.UserDailyLimit - userTotal - 1,
			CreatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reserve: %v", ErrUnavailable, err)
	}

	if denial != nil {
		metrics.QuotaDenialsTotal.WithLabelValues(denial.Reason).Inc()
		slog.Info("quota reservation denied",
			"user_id", userID, "reason", denial.Reason, "retry_after_s", denial.RetryAfter)
	}
	return res, denial, nil
}

// Confirm moves one unit from reserved to confirmed on both the user and
// budget records. Not idempotent — the orchestrator guarantees exactly-once
// invocation per reservation.
func (s *Service) Confirm(ctx context.Context, res *Reservation) error {
	if res == nil {
		return fmt.Errorf("confirm: nil reservation")
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		user, err := tx.UserDay(ctx, res.UserID)
		if err != nil {
			return err
		}
		// A rolled-over day already zeroed the counters logically;
		// touching them would resurrect yesterday's usage.
		if user.Day == res.Day {
			user.Reserved = max(0, user.Reserved-1)
			user.Confirmed++
			if err := tx.SaveUserDay(ctx, user); err != nil {
				return err
			}
		}

		budget, err := tx.BudgetDay(ctx, res.Day)
		if err != nil {
			return err
		}
		budget.ReservedSpend = max(0, budget.ReservedSpend-res.Cost)
		budget.ConfirmedSpend += res.Cost
		return tx.SaveBudgetDay(ctx, budget)
	})
	if err != nil {
		return fmt.Errorf("%w: confirm %s: %v", ErrUnavailable, res.ID, err)
	}
	return nil
}

// Release rolls back a reservation after a downstream failure, decrementing
// reserved on both records without touching confirmed.
func (s *Service) Release(ctx context.Context, res *Reservation) error {
	if res == nil {
		return fmt.Errorf("release: nil reservation")
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		user, err := tx.UserDay(ctx, res.UserID)
		if err != nil {
			return err
		}
		if user.Day == res.Day {
			user.Reserved = max(0, user.Reserved-1)
			if err := tx.SaveUserDay(ctx, user); err != nil {
				return err
			}
		}

		budget, err := tx.BudgetDay(ctx, res.Day)
		if err != nil {
			return err
		}
		budget.ReservedSpend = max(0, budget.ReservedSpend-res.Cost)
		return tx.SaveBudgetDay(ctx, budget)
	})
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", ErrUnavailable, res.ID, err)
	}
	return nil
}

// Status returns the user's current usage for API display. Read-only; stale
// days read as zero without being rewritten.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	var st *Status
	err := s.store.InTx(ctx, func(tx Tx) error {
		now := s.now().UTC()
		user, err := tx.UserDay(ctx, userID)
		if err != nil {
			return err
		}
		used := 0
		if user.Day == dayKey(now) {
			used = user.Confirmed + user.Reserved
		}
		st = &Status{
			Used:          used,
			Limit:         s.cfg.UserDailyLimit,
			Remaining:     max(0, s.cfg.UserDailyLimit-used),
			ResetsSeconds: secondsToMidnightUTC(now),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrUnavailable, err)
	}
	return st, nil
}
