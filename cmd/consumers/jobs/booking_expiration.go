package jobs

import (
	"context"
	"sync"
	"time"

	"cinebook/internal/logger"
)

// PendingExpirer cancels PENDING bookings older than ttl.
// *service.BookingService implements it.
type PendingExpirer interface {
	ExpirePending(ctx context.Context, ttl time.Duration) (int, error)
}

// BookingExpirationJob periodically cancels bookings left PENDING for longer than the TTL
type BookingExpirationJob struct {
	bookings PendingExpirer
	ttl      time.Duration
	interval time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

func NewBookingExpirationJob(bookings PendingExpirer, ttl, interval time.Duration) *BookingExpirationJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BookingExpirationJob{
		bookings: bookings,
		ttl:      ttl,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs one check immediately and then one per interval until Stop or ctx is done
func (j *BookingExpirationJob) Start(ctx context.Context) {
	logger.Get().Info("Starting booking expiration job", "check_interval", j.interval, "ttl", j.ttl)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.checkExpiredBookings(ctx)
		for {
			select {
			case <-ticker.C:
				j.checkExpiredBookings(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				logger.Get().Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running check to finish
func (j *BookingExpirationJob) Stop() {
	close(j.done)
	j.wg.Wait()
}

func (j *BookingExpirationJob) checkExpiredBookings(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()

	n, err := j.bookings.ExpirePending(checkCtx, j.ttl)
	if err != nil {
		logger.Get().Error("Failed to expire pending bookings", "error", err)
		return
	}

	if n == 0 {
		logger.Get().Debug("No expired bookings found")
		return
	}

	logger.Get().Info("Expired pending bookings", "count", n, "ttl", j.ttl)
}
