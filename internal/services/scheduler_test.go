package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hadaf/internal/core"
)

// fakeStore is an in-memory SchedulerStore with failure injection.
type fakeStore struct {
	rules       []core.RecurringRule
	txs         map[string]core.Transaction
	order       []string
	failAppend  map[string]error // transaction id -> error
	failAdvance map[string]error // rule id -> error
}

func newFakeStore(rules ...core.RecurringRule) *fakeStore {
	return &fakeStore{
		rules:       rules,
		txs:         make(map[string]core.Transaction),
		failAppend:  make(map[string]error),
		failAdvance: make(map[string]error),
	}
}

func (s *fakeStore) ListRecurringRules(context.Context) ([]core.RecurringRule, error) {
	out := make([]core.RecurringRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *fakeStore) AddRecurringRule(_ context.Context, r core.RecurringRule) error {
	s.rules = append(s.rules, r)
	return nil
}

func (s *fakeStore) UpdateRuleNextDue(_ context.Context, id string, next core.Date) error {
	if err := s.failAdvance[id]; err != nil {
		return err
	}
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].NextDue = next
			return nil
		}
	}
	return core.ErrRuleNotFound
}

func (s *fakeStore) DeleteRecurringRule(_ context.Context, id string) error {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return core.ErrRuleNotFound
}

func (s *fakeStore) AppendTransaction(_ context.Context, t core.Transaction) error {
	if err := s.failAppend[t.ID]; err != nil {
		return err
	}
	if _, exists := s.txs[t.ID]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateID, t.ID)
	}
	s.txs[t.ID] = t
	s.order = append(s.order, t.ID)
	return nil
}

func (s *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.txs[t.ID] = t
	return nil
}

func (s *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	delete(s.txs, id)
	return nil
}

func (s *fakeStore) rule(t *testing.T, id string) core.RecurringRule {
	t.Helper()
	for _, r := range s.rules {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %q not found", id)
	return core.RecurringRule{}
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, t core.Transaction) error {
	p.events = append(p.events, t.ID)
	return nil
}

func dailyRule(id string, nextDue core.Date) core.RecurringRule {
	return core.RecurringRule{
		ID:        id,
		Amount:    core.Money{Cents: 1500},
		Category:  "Food",
		Kind:      core.Expense,
		AccountID: core.DefaultAccountID,
		Frequency: core.Daily,
		StartDate: nextDue,
		NextDue:   nextDue,
		Active:    true,
	}
}

func TestCatchUpDailyFiveElapsedPeriods(t *testing.T) {
	store := newFakeStore(dailyRule("r1", core.NewDate(2024, time.January, 1)))
	proc := NewRecurringProcessor(store, nil)
	today := core.NewDate(2024, time.January, 5)

	created, err := proc.CatchUp(context.Background(), today)
	if err != nil {
		t.Fatalf("CatchUp: %v", err)
	}
	if created != 5 {
		t.Errorf("created = %d, want 5", created)
	}
	for day := 1; day <= 5; day++ {
		id := MaterializedID("r1", core.NewDate(2024, time.January, day))
		tx, ok := store.txs[id]
		if !ok {
			t.Fatalf("missing transaction for day %d", day)
		}
		if !tx.Recurring || tx.Kind != core.Expense || tx.Amount.Cents != 1500 {
			t.Errorf("materialized transaction %s = %+v", id, tx)
		}
	}
	if got := store.rule(t, "r1").NextDue; got != core.NewDate(2024, time.January, 6) {
		t.Errorf("NextDue = %s, want 2024-01-06", got)
	}
}

func TestCatchUpIsIdempotent(t *testing.T) {
	store := newFakeStore(dailyRule("r1", core.NewDate(2024, time.January, 1)))
	proc := NewRecurringProcessor(store, nil)
	today := core.NewDate(2024, time.January, 5)

	if _, err := proc.CatchUp(context.Background(), today); err != nil {
		t.Fatalf("first CatchUp: %v", err)
	}
	created, err := proc.CatchUp(context.Background(), today)
	if err != nil {
		t.Fatalf("second CatchUp: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created %d transactions, want 0", created)
	}
	if len(store.txs) != 5 {
		t.Errorf("store holds %d transactions, want 5", len(store.txs))
	}
}

func TestCatchUpResumesAfterInterruptedStep(t *testing.T) {
	// Simulate a crash between append and rule advancement: the transaction
	// for Jan 1 exists but the rule still points at Jan 1.
	store := newFakeStore(dailyRule("r1", core.NewDate(2024, time.January, 1)))
	pre := core.Transaction{
		ID:        MaterializedID("r1", core.NewDate(2024, time.January, 1)),
		Date:      core.NewDate(2024, time.January, 1),
		Amount:    core.Money{Cents: 1500},
		Kind:      core.Expense,
		AccountID: core.DefaultAccountID,
		Category:  "Food",
		Recurring: true,
	}
	if err := store.AppendTransaction(context.Background(), pre); err != nil {
		t.Fatalf("seed: %v", err)
	}

	proc := NewRecurringProcessor(store, nil)
	created, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 3))
	if err != nil {
		t.Fatalf("CatchUp: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2 (Jan 1 already materialized)", created)
	}
	if len(store.txs) != 3 {
		t.Errorf("store holds %d transactions, want 3", len(store.txs))
	}
	if got := store.rule(t, "r1").NextDue; got != core.NewDate(2024, time.January, 4) {
		t.Errorf("NextDue = %s, want 2024-01-04", got)
	}
}

func TestCatchUpMonthlyClamp(t *testing.T) {
	rule := dailyRule("r1", core.NewDate(2024, time.January, 31))
	rule.Frequency = core.Monthly
	store := newFakeStore(rule)
	proc := NewRecurringProcessor(store, nil)

	created, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 31))
	if err != nil {
		t.Fatalf("CatchUp: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if got := store.rule(t, "r1").NextDue; got != core.NewDate(2024, time.February, 29) {
		t.Errorf("NextDue = %s, want 2024-02-29 (leap-year clamp)", got)
	}
}

func TestCatchUpSkipsInactiveAndNotDue(t *testing.T) {
	inactive := dailyRule("off", core.NewDate(2024, time.January, 1))
	inactive.Active = false
	future := dailyRule("future", core.NewDate(2024, time.June, 1))
	store := newFakeStore(inactive, future)
	proc := NewRecurringProcessor(store, nil)

	created, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 10))
	if err != nil {
		t.Fatalf("CatchUp: %v", err)
	}
	if created != 0 || len(store.txs) != 0 {
		t.Errorf("created = %d, txs = %d, want none", created, len(store.txs))
	}
	if got := store.rule(t, "off").NextDue; got != core.NewDate(2024, time.January, 1) {
		t.Errorf("inactive rule advanced to %s", got)
	}
	if got := store.rule(t, "future").NextDue; got != core.NewDate(2024, time.June, 1) {
		t.Errorf("not-due rule advanced to %s", got)
	}
}

func TestCatchUpPersistenceFailureIsLocalToRule(t *testing.T) {
	broken := dailyRule("broken", core.NewDate(2024, time.January, 1))
	healthy := dailyRule("healthy", core.NewDate(2024, time.January, 1))
	store := newFakeStore(broken, healthy)
	store.failAppend[MaterializedID("broken", core.NewDate(2024, time.January, 2))] = errors.New("disk full")

	proc := NewRecurringProcessor(store, nil)
	created, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 3))
	if err == nil {
		t.Fatal("CatchUp should surface the persistence failure")
	}
	// broken materialized Jan 1 only; healthy caught up fully.
	if created != 1+3 {
		t.Errorf("created = %d, want 4", created)
	}
	if got := store.rule(t, "broken").NextDue; got != core.NewDate(2024, time.January, 2) {
		t.Errorf("broken rule NextDue = %s, want last committed period + 1", got)
	}
	if got := store.rule(t, "healthy").NextDue; got != core.NewDate(2024, time.January, 4) {
		t.Errorf("healthy rule NextDue = %s, want 2024-01-04", got)
	}

	// The next invocation resumes the broken rule cleanly.
	delete(store.failAppend, MaterializedID("broken", core.NewDate(2024, time.January, 2)))
	created, err = proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 3))
	if err != nil {
		t.Fatalf("resume CatchUp: %v", err)
	}
	if created != 2 {
		t.Errorf("resume created = %d, want 2", created)
	}
}

func TestCatchUpAdvanceFailureAbortsRule(t *testing.T) {
	rule := dailyRule("r1", core.NewDate(2024, time.January, 1))
	store := newFakeStore(rule)
	store.failAdvance["r1"] = errors.New("write failed")

	proc := NewRecurringProcessor(store, nil)
	created, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 5))
	if err == nil {
		t.Fatal("CatchUp should surface the advance failure")
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 before aborting", created)
	}
	if got := store.rule(t, "r1").NextDue; got != core.NewDate(2024, time.January, 1) {
		t.Errorf("NextDue = %s, want unchanged", got)
	}
}

func TestCatchUpPublishesEvents(t *testing.T) {
	store := newFakeStore(dailyRule("r1", core.NewDate(2024, time.January, 1)))
	pub := &recordingPublisher{}
	proc := NewRecurringProcessor(store, pub)

	if _, err := proc.CatchUp(context.Background(), core.NewDate(2024, time.January, 2)); err != nil {
		t.Fatalf("CatchUp: %v", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if pub.events[0] != MaterializedID("r1", core.NewDate(2024, time.January, 1)) {
		t.Errorf("first event = %s", pub.events[0])
	}
}

func TestMaterializedIDDeterministic(t *testing.T) {
	due := core.NewDate(2024, time.May, 7)
	a := MaterializedID("rule_x", due)
	b := MaterializedID("rule_x", due)
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}
	if a == MaterializedID("rule_y", due) {
		t.Error("different rules must map to different ids")
	}
	if a == MaterializedID("rule_x", due.AddDays(1)) {
		t.Error("different due dates must map to different ids")
	}
}
