package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/medisched/medisched/pkg/metrics"
)

type fakeMailer struct {
	err   error
	sent  int
	calls []Event
}

func (m *fakeMailer) Send(_ context.Context, ev Event) error {
	m.sent++
	m.calls = append(m.calls, ev)
	return m.err
}

func newTestConsumer(mailer Mailer) *Consumer {
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	return NewConsumer(nil, "test:emails", mailer, zap.NewNop(), collector, 3, time.Minute, 5*time.Second)
}

func marshalEnvelope(t *testing.T, env envelope) []byte {
	t.Helper()
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	return payload
}

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("success yields no retry", func(t *testing.T) {
		mailer := &fakeMailer{}
		c := newTestConsumer(mailer)

		retry := c.handle(ctx, marshalEnvelope(t, envelope{Event: testEvent(KindConfirmation)}))
		if retry != nil {
			t.Fatalf("retry = %+v, want nil", retry)
		}
		if mailer.sent != 1 {
			t.Errorf("sent = %d, want 1", mailer.sent)
		}
	})

	t.Run("failure increments attempt and requests retry", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("smtp unavailable")}
		c := newTestConsumer(mailer)

		retry := c.handle(ctx, marshalEnvelope(t, envelope{Event: testEvent(KindReminder), Attempt: 0}))
		if retry == nil {
			t.Fatal("expected a retry envelope")
		}
		if retry.Attempt != 1 {
			t.Errorf("Attempt = %d, want 1", retry.Attempt)
		}
		if retry.Event.Kind != KindReminder {
			t.Errorf("Kind = %s, want reminder", retry.Event.Kind)
		}
	})

	t.Run("exhausted attempts drop instead of retrying", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("smtp unavailable")}
		c := newTestConsumer(mailer)

		retry := c.handle(ctx, marshalEnvelope(t, envelope{Event: testEvent(KindReminder), Attempt: 2}))
		if retry != nil {
			t.Fatalf("retry = %+v, want drop after final attempt", retry)
		}
	})

	t.Run("malformed payload dropped without send", func(t *testing.T) {
		mailer := &fakeMailer{}
		c := newTestConsumer(mailer)

		if retry := c.handle(ctx, []byte("not json")); retry != nil {
			t.Fatalf("retry = %+v, want nil", retry)
		}
		if mailer.sent != 0 {
			t.Errorf("sent = %d, want 0", mailer.sent)
		}
	})
}
