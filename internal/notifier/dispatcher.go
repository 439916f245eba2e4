package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/empowersafe/sos_alerting_system/internal/config"
)

// Dispatcher раздает одно задание всем получателям по всем каналам.
// Попытки независимы: отказ одной пары получатель×канал не мешает остальным,
// наружу ошибки не поднимаются вовсе. Отказавшая попытка повторяется с
// экспоненциальной задержкой до maxRetries раз; skipped не повторяется.
type Dispatcher struct {
	channels   []Channel
	logger     *logrus.Logger
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// NewDispatcher создает диспетчер над набором каналов
func NewDispatcher(channels []Channel, logger *logrus.Logger, cfg *config.Config) *Dispatcher {
	maxRetries := cfg.DispatchMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Dispatcher{
		channels:   channels,
		logger:     logger,
		timeout:    cfg.ChannelTimeout,
		maxRetries: maxRetries,
		baseDelay:  cfg.DispatchBaseDelay,
	}
}

// Dispatch выполняет рассылку и возвращает исходы всех попыток.
// Ненастроенный канал дает skipped всем получателям и логируется один раз.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) []Outcome {
	log := d.logger.WithFields(logrus.Fields{
		"incident_id": job.IncidentID,
		"recipients":  len(job.Recipients),
	})
	log.Info("Dispatching notification job")

	outcomes := make([]Outcome, 0, len(job.Recipients)*len(d.channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ch := range d.channels {
		if !ch.Configured() {
			log.WithField("channel", ch.Name()).Warn("Channel is not configured, skipping")
			// Горутины ранних каналов уже пишут в outcomes, запись только под mu
			mu.Lock()
			for _, r := range job.Recipients {
				outcomes = append(outcomes, Outcome{
					ContactID: r.ContactID,
					Channel:   ch.Name(),
					Status:    OutcomeSkipped,
					Reason:    "channel not configured",
				})
			}
			mu.Unlock()
			continue
		}

		for _, r := range job.Recipients {
			wg.Add(1)
			go func(ch Channel, r Recipient) {
				defer wg.Done()
				out := d.attempt(ctx, ch, r, job.Message)
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}(ch, r)
		}
	}
	wg.Wait()

	var failed int
	for _, out := range outcomes {
		if out.Status == OutcomeFailed {
			failed++
			d.logger.WithFields(logrus.Fields{
				"incident_id": job.IncidentID,
				"contact_id":  out.ContactID,
				"channel":     out.Channel,
				"reason":      out.Reason,
			}).Warn("Notification delivery failed")
		}
	}
	log.WithFields(logrus.Fields{
		"attempts": len(outcomes),
		"failed":   failed,
	}).Info("Notification job dispatched")

	return outcomes
}

// attempt - доставка одной паре получатель×канал: до maxRetries вызовов
// с экспоненциальной задержкой между ними, каждый со своим таймаутом.
// Отсутствие адреса не повторяется, паника реализации канала
// превращается в failed-исход.
func (d *Dispatcher) attempt(ctx context.Context, ch Channel, r Recipient, body string) (out Outcome) {
	out = Outcome{ContactID: r.ContactID, Channel: ch.Name()}

	defer func() {
		if rec := recover(); rec != nil {
			out.Status = OutcomeFailed
			out.Reason = fmt.Sprintf("channel panic: %v", rec)
		}
	}()

	address := ch.Address(r)
	if address == "" {
		out.Status = OutcomeFailed
		out.Reason = "recipient has no address for this channel"
		return out
	}

	delay := d.baseDelay
	var lastErr error
	for i := 0; i < d.maxRetries; i++ {
		if i > 0 {
			d.logger.WithFields(logrus.Fields{
				"contact_id": r.ContactID,
				"channel":    ch.Name(),
				"delay":      delay,
				"retry":      i,
			}).Warn("Retrying notification delivery")
			select {
			case <-ctx.Done():
				out.Status = OutcomeFailed
				out.Reason = "canceled"
				return out
			case <-time.After(delay):
			}
			delay *= 2 // Экспоненциальная задержка
		}

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		lastErr = ch.Send(callCtx, address, body)
		cancel()
		if lastErr == nil {
			out.Status = OutcomeSuccess
			return out
		}
	}

	out.Status = OutcomeFailed
	if errors.Is(lastErr, context.DeadlineExceeded) {
		out.Reason = "timeout"
	} else {
		out.Reason = lastErr.Error()
	}
	return out
}
