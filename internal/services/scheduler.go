// Package services orchestrates the engine over the storage ports: the
// recurring-rule scheduler and the report service live here.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"hadaf/internal/core"
	"hadaf/internal/repo"
)

// SchedulerStore is the slice of the repository the scheduler needs.
type SchedulerStore interface {
	repo.RecurringReader
	repo.RecurringWriter
	repo.TransactionWriter
}

// EventPublisher receives every transaction the scheduler materializes.
// Publishing is best-effort; failures never affect catch-up.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, t core.Transaction) error
}

// RecurringProcessor advances recurring rules and materializes one concrete
// transaction per elapsed period.
type RecurringProcessor struct {
	store     SchedulerStore
	publisher EventPublisher
}

// NewRecurringProcessor creates a scheduler over the given store. publisher
// may be nil.
func NewRecurringProcessor(store SchedulerStore, publisher EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{store: store, publisher: publisher}
}

// MaterializedID derives the transaction id for one rule period. It is a pure
// function of (rule id, due date), so re-running catch-up over a period that
// was already materialized collides with the stored id instead of creating a
// duplicate.
func MaterializedID(ruleID string, due core.Date) string {
	return fmt.Sprintf("rec_%s_%s", ruleID, due)
}

// CatchUp walks every active rule whose due date has been reached and
// materializes one transaction per elapsed period until the rule is ahead of
// today. The advanced due date is persisted after every period, so an
// interrupted run resumes exactly where it stopped. A failing rule is
// abandoned at its last committed period; the remaining rules still run.
//
// Returns the number of transactions created.
func (p *RecurringProcessor) CatchUp(ctx context.Context, today core.Date) (int, error) {
	rules, err := p.store.ListRecurringRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring rules: %w", err)
	}

	slog.InfoContext(ctx, "Catching up recurring rules",
		"total_rules", len(rules),
		"today", today.String())

	created := 0
	var errs *multierror.Error
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		n, err := p.catchUpRule(ctx, rule, today)
		created += n
		if err != nil {
			slog.ErrorContext(ctx, "Rule catch-up aborted",
				"rule_id", rule.ID,
				"created", n,
				"error", err)
			errs = multierror.Append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
		}
	}

	slog.InfoContext(ctx, "Recurring catch-up complete",
		"created", created,
		"rules_checked", len(rules))
	return created, errs.ErrorOrNil()
}

func (p *RecurringProcessor) catchUpRule(ctx context.Context, rule core.RecurringRule, today core.Date) (int, error) {
	created := 0
	for due := rule.NextDue; !due.After(today); due = due.Next(rule.Frequency) {
		tx := core.Transaction{
			ID:        MaterializedID(rule.ID, due),
			Date:      due,
			Amount:    rule.Amount,
			Kind:      rule.Kind,
			AccountID: rule.AccountID,
			Category:  rule.Category,
			Note:      rule.Note,
			Recurring: true,
		}

		switch err := p.store.AppendTransaction(ctx, tx); {
		case err == nil:
			created++
			p.publish(ctx, tx)
		case errors.Is(err, core.ErrDuplicateID):
			// Already materialized by an earlier run that was interrupted
			// before the rule advanced. Advancing past it is the resume path.
			slog.DebugContext(ctx, "Period already materialized",
				"rule_id", rule.ID,
				"due", due.String())
		default:
			return created, fmt.Errorf("append transaction for %s: %w", due, err)
		}

		next := due.Next(rule.Frequency)
		if err := p.store.UpdateRuleNextDue(ctx, rule.ID, next); err != nil {
			return created, fmt.Errorf("advance rule to %s: %w", next, err)
		}
	}
	return created, nil
}

func (p *RecurringProcessor) publish(ctx context.Context, tx core.Transaction) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishTransactionEvent(ctx, tx); err != nil {
		slog.WarnContext(ctx, "Failed to publish transaction event",
			"transaction_id", tx.ID,
			"error", err)
	}
}
