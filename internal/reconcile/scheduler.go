package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/worker"
)

// DefaultConcurrency bounds concurrent reconciliations in SyncAll
const DefaultConcurrency = 5

// AccountStore persists judge credentials
type AccountStore interface {
	SaveJudgeAccount(ctx context.Context, acct models.JudgeAccount) error
	GetJudgeAccount(ctx context.Context, userID string) (*models.JudgeAccount, error)
	ListJudgeAccounts(ctx context.Context) ([]models.JudgeAccount, error)
}

// Submitter queues background work
type Submitter interface {
	Submit(task worker.Task) bool
}

// Scheduler decides when reconciliation runs: after login, on explicit
// request, on startup and periodically.
type Scheduler struct {
	svc         *Service
	accounts    AccountStore
	tasks       Submitter
	concurrency int
}

// SyncSummary reports the outcome of a SyncAll run
type SyncSummary struct {
	Users   int `json:"users"`
	Failed  int `json:"failed"`
	Changed int `json:"changed"`
}

// NewScheduler creates a scheduler. concurrency <= 0 uses DefaultConcurrency.
func NewScheduler(svc *Service, accounts AccountStore, tasks Submitter, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Scheduler{
		svc:         svc,
		accounts:    accounts,
		tasks:       tasks,
		concurrency: concurrency,
	}
}

// SaveAccount stores the user's judge credentials and queues a reconciliation
func (s *Scheduler) SaveAccount(ctx context.Context, userID, handle, sessionToken string) (*models.JudgeAccount, error) {
	handle = strings.TrimSpace(handle)
	sessionToken = strings.TrimSpace(sessionToken)

	if userID == "" {
		return nil, models.NewValidationError("userId", "user id is required")
	}
	if handle == "" {
		return nil, models.NewValidationError("username", "judge username is required")
	}
	if sessionToken == "" {
		return nil, models.NewValidationError("sessionCookie", "judge session cookie is required")
	}

	acct := models.JudgeAccount{UserID: userID, Handle: handle, SessionToken: sessionToken}
	if err := s.accounts.SaveJudgeAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to save judge account: %w", err)
	}

	saved, err := s.accounts.GetJudgeAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.enqueue(userID)
	return saved, nil
}

// OnLogin queues a reconciliation for the user and returns immediately.
// It reports whether the task was accepted.
func (s *Scheduler) OnLogin(userID string) bool {
	if userID == "" {
		return false
	}
	return s.enqueue(userID)
}

func (s *Scheduler) enqueue(userID string) bool {
	return s.tasks.Submit(worker.Task{
		Name: "reconcile:" + userID,
		Run: func(ctx context.Context) error {
			_, err := s.syncStored(ctx, userID)
			if errors.Is(err, models.ErrNotFound) {
				slog.Debug("no judge account, skipping reconcile", "user_id", userID)
				return nil
			}
			return err
		},
	})
}

// SyncUser reconciles the user synchronously using stored credentials
func (s *Scheduler) SyncUser(ctx context.Context, userID string) (int, error) {
	n, err := s.syncStored(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, models.NewValidationError("sessionCookie", "judge credentials must be saved first")
	}
	return n, err
}

func (s *Scheduler) syncStored(ctx context.Context, userID string) (int, error) {
	acct, err := s.accounts.GetJudgeAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.svc.Reconcile(ctx, acct.UserID, acct.Handle, acct.SessionToken)
}

// SyncAll reconciles every stored account with bounded concurrency. One
// user's failure is logged and counted without affecting the others.
func (s *Scheduler) SyncAll(ctx context.Context) (*SyncSummary, error) {
	accounts, err := s.accounts.ListJudgeAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list judge accounts: %w", err)
	}

	start := time.Now()
	var failed, changed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, acct := range accounts {
		acct := acct
		g.Go(func() error {
			n, err := s.svc.Reconcile(gctx, acct.UserID, acct.Handle, acct.SessionToken)
			if err != nil {
				failed.Add(1)
				slog.Warn("reconcile failed", "user_id", acct.UserID, "error", err)
				return nil
			}
			changed.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	summary := &SyncSummary{
		Users:   len(accounts),
		Failed:  int(failed.Load()),
		Changed: int(changed.Load()),
	}

	slog.Info("sync-all completed",
		"users", summary.Users,
		"failed", summary.Failed,
		"changed", summary.Changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary, ctx.Err()
}

// Periodic returns a runner that calls SyncAll every interval
func (s *Scheduler) Periodic(interval time.Duration, immediate bool) *worker.Periodic {
	return worker.NewPeriodic("judge-sync", interval, immediate, func(ctx context.Context) {
		if _, err := s.SyncAll(ctx); err != nil {
			slog.Error("periodic sync failed", "error", err)
		}
	})
}
