package notifier

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empowersafe/sos_alerting_system/internal/config"
)

// stubChannel - управляемая реализация канала для тестов диспетчера
type stubChannel struct {
	name       string
	configured bool
	address    func(r Recipient) string
	send       func(ctx context.Context, address, body string) error
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Configured() bool { return c.configured }
func (c *stubChannel) Address(r Recipient) string {
	if c.address != nil {
		return c.address(r)
	}
	return r.Phone
}
func (c *stubChannel) Send(ctx context.Context, address, body string) error {
	if c.send != nil {
		return c.send(ctx, address, body)
	}
	return nil
}

func newTestDispatcher(channels ...Channel) *Dispatcher {
	return newRetryingDispatcher(1, channels...)
}

func newRetryingDispatcher(maxRetries int, channels ...Channel) *Dispatcher {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	cfg := &config.Config{
		ChannelTimeout:     100 * time.Millisecond,
		DispatchMaxRetries: maxRetries,
		DispatchBaseDelay:  time.Millisecond,
	}
	return NewDispatcher(channels, logger, cfg)
}

func testJob(recipients ...Recipient) Job {
	return Job{
		IncidentID: uuid.New(),
		OwnerID:    uuid.New(),
		Message:    "Emergency SOS Alert!",
		Recipients: recipients,
	}
}

func outcomeFor(t *testing.T, outcomes []Outcome, contactID, channel string) Outcome {
	t.Helper()
	for _, out := range outcomes {
		if out.ContactID == contactID && out.Channel == channel {
			return out
		}
	}
	t.Fatalf("outcome for %s/%s not found", contactID, channel)
	return Outcome{}
}

func TestDispatch_AllSuccess(t *testing.T) {
	// Подготовка
	sms := &stubChannel{name: "sms", configured: true}
	dispatcher := newTestDispatcher(sms)
	job := testJob(
		Recipient{ContactID: "c1", Phone: "+15550001"},
		Recipient{ContactID: "c2", Phone: "+15550002"},
	)

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeSuccess, out.Status)
		assert.Equal(t, "sms", out.Channel)
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	// Подготовка: канал отказывает только одному получателю
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, address, _ string) error {
			if address == "+15550001" {
				return errors.New("gateway rejected number")
			}
			return nil
		},
	}
	dispatcher := newTestDispatcher(sms)
	job := testJob(
		Recipient{ContactID: "c1", Phone: "+15550001"},
		Recipient{ContactID: "c2", Phone: "+15550002"},
	)

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки: отказ первого не задел второго
	require.Len(t, outcomes, 2)
	failed := outcomeFor(t, outcomes, "c1", "sms")
	assert.Equal(t, OutcomeFailed, failed.Status)
	assert.Equal(t, "gateway rejected number", failed.Reason)
	assert.Equal(t, OutcomeSuccess, outcomeFor(t, outcomes, "c2", "sms").Status)
}

func TestDispatch_UnconfiguredChannelSkipped(t *testing.T) {
	// Подготовка: push не настроен, sms работает
	sms := &stubChannel{name: "sms", configured: true}
	push := &stubChannel{name: "push", configured: false}
	dispatcher := newTestDispatcher(sms, push)
	job := testJob(Recipient{ContactID: "c1", Phone: "+15550001", PushToken: "tok"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 2)
	assert.Equal(t, OutcomeSuccess, outcomeFor(t, outcomes, "c1", "sms").Status)
	skipped := outcomeFor(t, outcomes, "c1", "push")
	assert.Equal(t, OutcomeSkipped, skipped.Status)
	assert.Equal(t, "channel not configured", skipped.Reason)
}

func TestDispatch_MissingAddress(t *testing.T) {
	// Подготовка: у получателя нет телефона
	sms := &stubChannel{name: "sms", configured: true}
	dispatcher := newTestDispatcher(sms)
	job := testJob(Recipient{ContactID: "c1"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, "recipient has no address for this channel", outcomes[0].Reason)
}

func TestDispatch_PanicContained(t *testing.T) {
	// Подготовка: реализация канала паникует
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, _, _ string) error {
			panic("nil gateway client")
		},
	}
	dispatcher := newTestDispatcher(sms)
	job := testJob(
		Recipient{ContactID: "c1", Phone: "+15550001"},
		Recipient{ContactID: "c2", Phone: "+15550002"},
	)

	// Действие: паника не должна уронить диспетчер
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeFailed, out.Status)
		assert.Contains(t, out.Reason, "channel panic")
	}
}

func TestDispatch_Timeout(t *testing.T) {
	// Подготовка: канал висит дольше таймаута попытки
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(ctx context.Context, _, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	dispatcher := newTestDispatcher(sms)
	job := testJob(Recipient{ContactID: "c1", Phone: "+15550001"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, "timeout", outcomes[0].Reason)
}

func TestDispatch_SkippedWhileDeliveriesInFlight(t *testing.T) {
	// Подготовка: доставки настроенного канала еще в полете, когда
	// регистрируются skipped-исходы ненастроенного
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, _, _ string) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		},
	}
	push := &stubChannel{name: "push", configured: false, address: func(r Recipient) string { return r.PushToken }}
	dispatcher := newTestDispatcher(sms, push)
	recipients := make([]Recipient, 8)
	for i := range recipients {
		recipients[i] = Recipient{ContactID: string(rune('a' + i)), Phone: "+1555000", PushToken: "tok"}
	}
	job := testJob(recipients...)

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки: ни один исход не потерян
	require.Len(t, outcomes, 2*len(recipients))
	var succeeded, skipped int
	for _, out := range outcomes {
		switch out.Status {
		case OutcomeSuccess:
			succeeded++
		case OutcomeSkipped:
			skipped++
		}
	}
	assert.Equal(t, len(recipients), succeeded)
	assert.Equal(t, len(recipients), skipped)
}

func TestDispatch_RetriesUntilSuccess(t *testing.T) {
	// Подготовка: канал отказывает дважды, третья попытка проходит
	var mu sync.Mutex
	calls := 0
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, _, _ string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				return errors.New("gateway overloaded")
			}
			return nil
		},
	}
	dispatcher := newRetryingDispatcher(3, sms)
	job := testJob(Recipient{ContactID: "c1", Phone: "+15550001"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, 3, calls)
}

func TestDispatch_RetriesExhausted(t *testing.T) {
	// Подготовка: канал отказывает всегда
	var mu sync.Mutex
	calls := 0
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, _, _ string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return errors.New("gateway down")
		},
	}
	dispatcher := newRetryingDispatcher(2, sms)
	job := testJob(Recipient{ContactID: "c1", Phone: "+15550001"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки: ровно maxRetries вызовов, исход failed с последней причиной
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, "gateway down", outcomes[0].Reason)
	assert.Equal(t, 2, calls)
}

func TestDispatch_MissingAddressNotRetried(t *testing.T) {
	// Подготовка: адреса нет, повторять бессмысленно
	var mu sync.Mutex
	calls := 0
	sms := &stubChannel{
		name:       "sms",
		configured: true,
		send: func(_ context.Context, _, _ string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return nil
		},
	}
	dispatcher := newRetryingDispatcher(3, sms)
	job := testJob(Recipient{ContactID: "c1"})

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), job)

	// Проверки
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, "recipient has no address for this channel", outcomes[0].Reason)
	assert.Equal(t, 0, calls)
}

func TestDispatch_NoRecipients(t *testing.T) {
	// Подготовка
	sms := &stubChannel{name: "sms", configured: true}
	dispatcher := newTestDispatcher(sms)

	// Действие
	outcomes := dispatcher.Dispatch(context.Background(), testJob())

	// Проверки
	assert.Empty(t, outcomes)
}
