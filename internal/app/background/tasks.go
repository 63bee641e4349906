package background

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/lockbay/lockbay-payment-service/internal/config"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/callback"
	"github.com/lockbay/lockbay-payment-service/internal/usecase"
)

const (
	defaultSweepInterval      = 5
	defaultStatsRefresh       = 2
	defaultRedeliveryInterval = 1

	// How many pending callback retries one redelivery run picks up.
	redeliveryBatchLimit = 50
)

type BackgroundTasks struct {
	scheduler *gocron.Scheduler

	SweeperUsecase usecase.SweeperUsecase
	StatsUsecase   usecase.StatsUsecase
	Dispatcher     *callback.Dispatcher

	sweepEvery      int
	statsEvery      int
	redeliveryEvery int
}

func NewBackgroundTasks(cfg config.SchedulerConfig, sweeperUC usecase.SweeperUsecase, statsUC usecase.StatsUsecase, dispatcher *callback.Dispatcher) *BackgroundTasks {
	sweepEvery := cfg.SweepIntervalMinutes
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	statsEvery := cfg.StatsRefreshMinutes
	if statsEvery <= 0 {
		statsEvery = defaultStatsRefresh
	}
	redeliveryEvery := cfg.RedeliveryIntervalMinutes
	if redeliveryEvery <= 0 {
		redeliveryEvery = defaultRedeliveryInterval
	}

	return &BackgroundTasks{
		scheduler:       gocron.NewScheduler(time.Local),
		SweeperUsecase:  sweeperUC,
		StatsUsecase:    statsUC,
		Dispatcher:      dispatcher,
		sweepEvery:      sweepEvery,
		statsEvery:      statsEvery,
		redeliveryEvery: redeliveryEvery,
	}
}

// StartAll registers the periodic jobs and starts the scheduler without
// blocking. Jobs log their own failures; a failed run never stops the
// schedule.
func (bt *BackgroundTasks) StartAll() {
	_, err := bt.scheduler.Every(bt.sweepEvery).Minutes().Do(bt.runSweep)
	if err != nil {
		log.Printf("Failed to schedule timeout sweep: %v", err)
	}

	_, err = bt.scheduler.Every(bt.statsEvery).Minutes().Do(bt.refreshStats)
	if err != nil {
		log.Printf("Failed to schedule stats refresh: %v", err)
	}

	_, err = bt.scheduler.Every(bt.redeliveryEvery).Minutes().Do(bt.redeliverCallbacks)
	if err != nil {
		log.Printf("Failed to schedule callback redelivery: %v", err)
	}

	bt.scheduler.StartAsync()
	log.Printf("Background jobs started: sweep=%dm stats=%dm redelivery=%dm", bt.sweepEvery, bt.statsEvery, bt.redeliveryEvery)
}

func (bt *BackgroundTasks) Stop() {
	bt.scheduler.Stop()
}

func (bt *BackgroundTasks) runSweep() {
	summary, err := bt.SweeperUsecase.RunSweep(context.Background())
	if err != nil {
		log.Printf("Timeout sweep error: %v", err)
		return
	}
	if summary.Total > 0 {
		log.Printf("Timeout sweep handled %d/%d entities (%d failed) in %s", summary.Handled, summary.Total, summary.Failed, summary.Elapsed)
	}
}

func (bt *BackgroundTasks) refreshStats() {
	if _, err := bt.StatsUsecase.RefreshStats(context.Background()); err != nil {
		log.Printf("Stats refresh error: %v", err)
	}
}

func (bt *BackgroundTasks) redeliverCallbacks() {
	attempted, err := bt.Dispatcher.RunDueRetries(context.Background(), redeliveryBatchLimit)
	if err != nil {
		log.Printf("Callback redelivery error: %v", err)
		return
	}
	if attempted > 0 {
		log.Printf("Callback redelivery attempted %d deliveries", attempted)
	}
}
