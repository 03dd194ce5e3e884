package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jesuscorral/ticketwave/pkg/clock"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeBookingRepo struct {
	bookings map[string]*domain.Booking
	consumed map[string]bool
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*domain.Booking{}, consumed: map[string]bool{}}
}

func (f *fakeBookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingRepo) Save(ctx context.Context, b *domain.Booking) error {
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookingRepo) ExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.Status == domain.BookingPending && now.After(b.ExpiresAt) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) List(ctx context.Context, page, size int, userID, eventID string) ([]domain.Booking, int64, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeBookingRepo) MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error) {
	if f.consumed[eventID] {
		return false, nil
	}
	f.consumed[eventID] = true
	return true, nil
}

// safePublisher captures published events. Handlers for one dispatch run
// concurrently, so the capture is locked.
type safePublisher struct {
	mu        sync.Mutex
	published []events.Integration
	err       error
}

func (p *safePublisher) Publish(ctx context.Context, e events.Integration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

func (p *safePublisher) byKey(key string) []events.Integration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Integration
	for _, e := range p.published {
		if e.RoutingKey() == key {
			out = append(out, e)
		}
	}
	return out
}

func (p *safePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func newTestService(t *testing.T, opts ...Option) (*BookingService, *fakeBookingRepo, *safePublisher) {
	t.Helper()
	repo := newFakeBookingRepo()
	pub := &safePublisher{}
	d := twdomain.NewDispatcher()
	RegisterEventHandlers(d, pub, "booking-service")
	svc := NewBookingService(repo, d, clock.NewFixed(testNow), opts...)
	return svc, repo, pub
}

func paidInput() CreateBookingInput {
	return CreateBookingInput{EventID: "ev-1", UserID: "u-1", Quantity: 2, TotalAmount: 5000, Currency: "thb"}
}

func TestCreateFanOut(t *testing.T) {
	t.Parallel()

	t.Run("paid booking emits reserve, notification and payment prep", func(t *testing.T) {
		t.Parallel()
		svc, repo, pub := newTestService(t)

		b, err := svc.Create(context.Background(), paidInput())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if repo.bookings[b.ID] == nil {
			t.Fatal("booking not persisted")
		}
		if got := pub.count(); got != 3 {
			t.Fatalf("published %d events, want 3", got)
		}

		reserve := pub.byKey(events.RKInventoryUpdateRequested)
		if len(reserve) != 1 {
			t.Fatalf("inventory requests = %d, want 1", len(reserve))
		}
		req := reserve[0].(events.UpdateEventInventory)
		if req.Action != events.InventoryActionReserve || req.Quantity != 2 || req.BookingID != b.ID {
			t.Fatalf("reserve request = %+v", req)
		}
		if got := pub.byKey(events.RKNotificationRequested); len(got) != 1 {
			t.Fatalf("notification requests = %d, want 1", len(got))
		}
		prep := pub.byKey(events.RKPaymentPrepareRequested)
		if len(prep) != 1 {
			t.Fatalf("payment prep requests = %d, want 1", len(prep))
		}
		p := prep[0].(events.PreparePaymentData)
		if p.Amount != 5000 || p.Currency != "thb" {
			t.Fatalf("prep request = %+v", p)
		}
	})

	t.Run("free booking skips payment prep", func(t *testing.T) {
		t.Parallel()
		svc, _, pub := newTestService(t)

		in := paidInput()
		in.TotalAmount = 0
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if got := pub.byKey(events.RKPaymentPrepareRequested); len(got) != 0 {
			t.Fatalf("free booking prepared a payment: %d events", len(got))
		}
		if got := pub.count(); got != 2 {
			t.Fatalf("published %d events, want 2", got)
		}
	})

	t.Run("dispatch failure surfaces but keeps the booking", func(t *testing.T) {
		t.Parallel()
		svc, repo, pub := newTestService(t)
		pub.err = errors.New("broker down")

		b, err := svc.Create(context.Background(), paidInput())
		if err == nil {
			t.Fatal("Create() swallowed the dispatch failure")
		}
		if b == nil || repo.bookings[b.ID] == nil {
			t.Fatal("committed booking lost on dispatch failure")
		}
	})
}

func TestConfirmEmitsBookingConfirmed(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestService(t)
	b, err := svc.Create(context.Background(), paidInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Confirm(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if got.Status != domain.BookingConfirmed {
		t.Fatalf("Status = %s", got.Status)
	}
	if got := pub.byKey(events.RKBookingConfirmed); len(got) != 1 {
		t.Fatalf("booking.confirmed events = %d, want 1", len(got))
	}
}

func TestCancelEmitsReleaseRequest(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestService(t)
	b, err := svc.Create(context.Background(), paidInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Cancel(context.Background(), b.ID, "user request"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := pub.byKey(events.RKBookingCancelled); len(got) != 1 {
		t.Fatalf("booking.cancelled events = %d, want 1", len(got))
	}

	var releases []events.UpdateEventInventory
	for _, e := range pub.byKey(events.RKInventoryUpdateRequested) {
		req := e.(events.UpdateEventInventory)
		if req.Action == events.InventoryActionRelease {
			releases = append(releases, req)
		}
	}
	if len(releases) != 1 || releases[0].BookingID != b.ID {
		t.Fatalf("release requests = %+v, want one for %s", releases, b.ID)
	}
}

func TestConfirmIfNotProcessed(t *testing.T) {
	t.Parallel()

	t.Run("first delivery confirms, duplicate is a no-op", func(t *testing.T) {
		t.Parallel()
		svc, _, pub := newTestService(t)
		b, err := svc.Create(context.Background(), paidInput())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := svc.ConfirmIfNotProcessed(context.Background(), b.ID, "msg-1", events.RKPaymentCompleted)
		if err != nil {
			t.Fatalf("ConfirmIfNotProcessed() error = %v", err)
		}
		if got == nil || got.Status != domain.BookingConfirmed {
			t.Fatalf("booking after confirm = %+v", got)
		}

		dup, err := svc.ConfirmIfNotProcessed(context.Background(), b.ID, "msg-1", events.RKPaymentCompleted)
		if err != nil {
			t.Fatalf("duplicate delivery error = %v", err)
		}
		if dup != nil {
			t.Fatal("duplicate delivery reprocessed the booking")
		}
		if got := pub.byKey(events.RKBookingConfirmed); len(got) != 1 {
			t.Fatalf("booking.confirmed events = %d, want 1", len(got))
		}
	})

	t.Run("confirm after expiry window is rejected", func(t *testing.T) {
		t.Parallel()
		repo := newFakeBookingRepo()
		pub := &safePublisher{}
		d := twdomain.NewDispatcher()
		RegisterEventHandlers(d, pub, "booking-service")

		createSvc := NewBookingService(repo, d, clock.NewFixed(testNow))
		b, err := createSvc.Create(context.Background(), paidInput())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		lateSvc := NewBookingService(repo, d, clock.NewFixed(testNow.Add(time.Hour)))
		_, err = lateSvc.ConfirmIfNotProcessed(context.Background(), b.ID, "msg-late", events.RKPaymentCompleted)
		var ise *twdomain.InvalidStateError
		if !errors.As(err, &ise) {
			t.Fatalf("late confirm error = %v, want InvalidStateError", err)
		}
	})
}

func TestCancelIfNotProcessedNoOpOnCancelled(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestService(t)
	b, err := svc.Create(context.Background(), paidInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID, "user request"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	before := pub.count()

	got, err := svc.CancelIfNotProcessed(context.Background(), b.ID, "msg-2", events.RKPaymentFailed, "payment failed")
	if err != nil {
		t.Fatalf("CancelIfNotProcessed() error = %v", err)
	}
	if got != nil {
		t.Fatal("cancel of an already cancelled booking reported a change")
	}
	if pub.count() != before {
		t.Fatal("no-op cancel published events")
	}
}

func TestExpireDue(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	pub := &safePublisher{}
	d := twdomain.NewDispatcher()
	RegisterEventHandlers(d, pub, "booking-service")

	createSvc := NewBookingService(repo, d, clock.NewFixed(testNow), WithBookingTTL(time.Minute))
	stale, err := createSvc.Create(context.Background(), paidInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	lateSvc := NewBookingService(repo, d, clock.NewFixed(testNow.Add(10*time.Minute)))
	fresh, err := lateSvc.Create(context.Background(), paidInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := lateSvc.ExpireDue(context.Background())
	if err != nil {
		t.Fatalf("ExpireDue() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d bookings, want 1", n)
	}
	if got := repo.bookings[stale.ID].Status; got != domain.BookingExpired {
		t.Fatalf("stale booking status = %s, want EXPIRED", got)
	}
	if got := repo.bookings[fresh.ID].Status; got != domain.BookingPending {
		t.Fatalf("fresh booking status = %s, want PENDING", got)
	}

	expiredEvents := pub.byKey(events.RKBookingExpired)
	if len(expiredEvents) != 1 {
		t.Fatalf("booking.expired events = %d, want 1", len(expiredEvents))
	}
	if got := expiredEvents[0].(events.BookingExpired).BookingID; got != stale.ID {
		t.Fatalf("expired event booking = %s, want %s", got, stale.ID)
	}
}
