package common

import (
	"context"
	"log"
	"time"
)

// SweepAbandonedBookings is the scheduler task that releases seats held by
// pending bookings nobody started paying for.
func SweepAbandonedBookings(b *Bookings, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := b.SweepAbandoned(ctx, ttl)
	if err != nil {
		log.Printf("Error sweeping abandoned bookings: %s\n", err.Error())
		return
	}
	if n > 0 {
		log.Printf("Released %d abandoned booking(s)\n", n)
	}
}

func CompleteDepartedBookings(b *Bookings) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := b.CompleteDeparted(ctx)
	if err != nil {
		log.Printf("Error completing departed bookings: %s\n", err.Error())
		return
	}
	if n > 0 {
		log.Printf("Marked %d booking(s) completed\n", n)
	}
}
