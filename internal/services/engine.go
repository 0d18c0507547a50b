package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"budgetd/internal/core"
	"budgetd/internal/events"
	"budgetd/internal/store"
)

// RuleError reports that a single recurring rule failed to process. The batch
// loop records these and moves on; one bad rule never blocks the rest.
type RuleError struct {
	RuleID string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Summary is the result of one engine pass.
type Summary struct {
	RulesProcessed        int `json:"rulesProcessed"`
	TransactionsGenerated int `json:"transactionsGenerated"`
	RulesFailed           int `json:"rulesFailed"`
}

// Engine materializes transactions from recurring rules. A weighted semaphore
// of one guards ProcessAll and ProcessRuleByID so the scheduler tick and a
// manual trigger can never run concurrently; the loser gets store.ErrBusy.
type Engine struct {
	store  store.Store
	events *events.Publisher
	guard  *semaphore.Weighted
}

// NewEngine creates an engine. publisher may be nil to disable event
// publishing.
func NewEngine(st store.Store, publisher *events.Publisher) *Engine {
	return &Engine{
		store:  st,
		events: publisher,
		guard:  semaphore.NewWeighted(1),
	}
}

// ProcessAll runs one engine pass over every user's active rules. Per-rule
// failures are logged and counted, never propagated. Returns store.ErrBusy if
// another pass is already running.
func (e *Engine) ProcessAll(ctx context.Context, now time.Time) (Summary, error) {
	if !e.guard.TryAcquire(1) {
		return Summary{}, store.ErrBusy
	}
	defer e.guard.Release(1)

	var summary Summary

	users, err := e.store.Users().All(ctx)
	if err != nil {
		if len(users) == 0 {
			return summary, fmt.Errorf("list users: %w", err)
		}
		// Partial result: corrupt user documents are skipped, the rest of
		// the batch still runs.
		slog.ErrorContext(ctx, "Some user documents unreadable, processing remainder",
			"error", err)
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"users", len(users),
		"processing_date", core.DateOf(now).String())

	for _, u := range users {
		rules, err := e.store.Recurring().ByUser(ctx, u.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load recurring rules",
				"user_id", u.ID,
				"error", err)
			continue
		}
		for _, rule := range rules {
			if !rule.IsActive {
				continue
			}
			generated, err := e.ProcessRule(ctx, rule, now)
			summary.TransactionsGenerated += generated
			if err != nil {
				summary.RulesFailed++
				slog.ErrorContext(ctx, "Failed to process recurring rule",
					"rule_id", rule.ID,
					"user_id", rule.UserID,
					"error", err)
				continue
			}
			summary.RulesProcessed++
		}
	}

	slog.InfoContext(ctx, "Recurring rule processing complete",
		"rules_processed", summary.RulesProcessed,
		"transactions_generated", summary.TransactionsGenerated,
		"rules_failed", summary.RulesFailed)

	return summary, nil
}

// ProcessRuleByID processes one rule on demand. Shares the run guard with
// ProcessAll.
func (e *Engine) ProcessRuleByID(ctx context.Context, userID, ruleID string, now time.Time) (int, error) {
	if !e.guard.TryAcquire(1) {
		return 0, store.ErrBusy
	}
	defer e.guard.Release(1)

	rule, err := e.store.Recurring().ByID(ctx, userID, ruleID)
	if err != nil {
		return 0, err
	}
	return e.ProcessRule(ctx, rule, now)
}

// ProcessRule generates one transaction per missed period, each dated at its
// historical due date, then advances the rule's nextDueDate past now and
// persists it. A rule dormant for N periods yields exactly N transactions in
// one call; calling again with the same now yields zero.
func (e *Engine) ProcessRule(ctx context.Context, rule core.RecurringRule, now time.Time) (int, error) {
	if !rule.IsActive {
		return 0, nil
	}

	today := core.DateOf(now)
	due := rule.NextDueDate
	if due.After(today.Time) {
		return 0, nil
	}

	// The rule's category must still resolve before anything is generated.
	if _, err := e.store.Categories().ByID(ctx, rule.UserID, rule.CategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("category %s: %w", rule.CategoryID, store.ErrInvalidReference)
		}
		return 0, &RuleError{RuleID: rule.ID, Err: err}
	}

	generated := 0
	var loopErr error
	for !due.After(today.Time) {
		txn := core.Transaction{
			ID:          uuid.NewString(),
			UserID:      rule.UserID,
			CategoryID:  rule.CategoryID,
			Amount:      rule.Amount,
			Type:        rule.Type,
			Date:        due,
			Notes:       rule.Notes,
			IsRecurring: true,
			RecurringID: rule.ID,
			Timestamps:  core.Timestamps{CreatedAt: now, UpdatedAt: now},
		}
		if err := e.store.Transactions().Insert(ctx, txn); err != nil {
			loopErr = fmt.Errorf("insert transaction due %s: %w", due, err)
			break
		}
		generated++

		if err := e.events.TransactionGenerated(ctx, txn); err != nil {
			// Event delivery is best effort; the transaction is committed.
			slog.WarnContext(ctx, "Failed to publish transaction generated event",
				"transaction_id", txn.ID,
				"error", err)
		}

		next, err := NextDueDate(due, rule.Frequency, rule.StartDate)
		if err != nil {
			loopErr = err
			break
		}
		due = next
	}

	// Persist whatever advancement was reached, even on a mid-loop failure:
	// transactions already written must not be generated again on retry.
	if generated > 0 || !due.Equal(rule.NextDueDate.Time) {
		nextDue := due
		if _, err := e.store.Recurring().Update(ctx, rule.UserID, rule.ID, func(r *core.RecurringRule) {
			r.NextDueDate = nextDue
		}); err != nil {
			if loopErr == nil {
				loopErr = fmt.Errorf("advance next due date: %w", err)
			}
		}
	}

	if loopErr != nil {
		return generated, &RuleError{RuleID: rule.ID, Err: loopErr}
	}

	slog.InfoContext(ctx, "Generated transactions from recurring rule",
		"rule_id", rule.ID,
		"user_id", rule.UserID,
		"generated", generated,
		"next_due_date", due.String())

	return generated, nil
}
