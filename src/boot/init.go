package boot

import (
	"context"
	"log"
	"time"
	"vbs/src/common"
	"vbs/src/config"
	"vbs/src/db"
	"vbs/src/lib"
	"vbs/src/models"

	"gorm.io/gorm"
)

func InitDb(cfg *config.Config) *gorm.DB {
	db := db.Open(cfg)
	if err := Migrate(db); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Seat{},
		&models.Booking{},
		&models.BookingSeat{},
		&models.Payment{},
		&models.Ticket{},
	)
}

// InitBroker creates the events topic on a local kafka broker. Production
// publishes through SQS and the queue is provisioned outside the app.
func InitBroker(cfg *config.Config) {
	if cfg.IsProd() || cfg.KafkaBroker == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := lib.KafkaCreateTopics(ctx, cfg.KafkaBroker, cfg.EventsTopic)
	if err != nil {
		return
	}
	for _, r := range results {
		log.Printf("Topic %s: %s\n", r.Topic, r.Error.String())
	}
}

func InitScheduler(bookings *common.Bookings, cfg *config.Config) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if _, err := lib.CreateCronJob("sweep-abandoned-bookings", common.SweepAbandonedBookings, cfg.SweepInterval, bookings, cfg.PendingBookingTTL); err != nil {
		log.Printf("Error scheduling sweeper: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob("complete-departed-bookings", common.CompleteDepartedBookings, cfg.SweepInterval, bookings); err != nil {
		log.Printf("Error scheduling completion job: %s\n", err.Error())
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
