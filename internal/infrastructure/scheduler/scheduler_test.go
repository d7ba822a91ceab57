package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a Scheduler", t, func() {
		Convey("New function", func() {
			scheduler := New()

			Convey("It should create a new scheduler successfully", func() {
				So(scheduler, ShouldNotBeNil)
				So(scheduler.cron, ShouldNotBeNil)
			})
		})

		Convey("AddJob function", func() {
			scheduler := New()

			Convey("When adding a job with a valid cron spec", func() {
				// Create a temporary file to verify job execution
				tempDir, err := os.MkdirTemp("", "scheduler_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				logFile := filepath.Join(tempDir, "job.log")
				job := func(ctx context.Context) error {
					return os.WriteFile(logFile, []byte("executed"), 0644)
				}

				err = scheduler.AddJob("* * * * * *", job) // Every second

				Convey("It should add the job successfully", func() {
					So(err, ShouldBeNil)

					// Start the scheduler and wait briefly to allow job execution
					scheduler.Start(context.Background())
					time.Sleep(2 * time.Second) // Wait for at least one execution
					scheduler.Stop()

					// Verify the job executed by checking the log file
					_, err := os.Stat(logFile)
					So(err, ShouldBeNil)
					content, err := os.ReadFile(logFile)
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "executed")
				})
			})

			Convey("When adding a job with an invalid cron spec", func() {
				job := func(ctx context.Context) error { return nil }
				err := scheduler.AddJob("invalid spec", job)

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "expected exactly 6 fields")
				})
			})
		})

		Convey("ValidateSpec function", func() {
			So(ValidateSpec("0 0 3 * * *"), ShouldBeNil)
			So(ValidateSpec("@daily"), ShouldBeNil)
			So(ValidateSpec("0 3 * * *"), ShouldNotBeNil)
		})

		Convey("When a job outlives its tick", func() {
			scheduler := New()
			var mu sync.Mutex
			running, maxRunning := 0, 0

			err := scheduler.AddJob("* * * * * *", func(ctx context.Context) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				time.Sleep(1500 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			So(err, ShouldBeNil)

			scheduler.Start(context.Background())
			So(scheduler.Next().IsZero(), ShouldBeFalse)
			time.Sleep(3500 * time.Millisecond)
			scheduler.Stop()

			Convey("It should never overlap invocations", func() {
				mu.Lock()
				defer mu.Unlock()
				So(maxRunning, ShouldEqual, 1)
			})
		})

		Convey("When the scheduler is started with a context", func() {
			scheduler := New()
			type key struct{}
			ctx := context.WithValue(context.Background(), key{}, "run")
			got := make(chan interface{}, 1)

			err := scheduler.AddJob("* * * * * *", func(ctx context.Context) error {
				select {
				case got <- ctx.Value(key{}):
				default:
				}
				return nil
			})
			So(err, ShouldBeNil)

			scheduler.Start(ctx)
			value := <-got
			scheduler.Stop()

			So(value, ShouldEqual, "run")
		})

		Convey("Start and Stop methods", func() {
			scheduler := New()

			Convey("When starting and stopping the scheduler", func() {
				// Create a temporary file to verify job execution
				tempDir, err := os.MkdirTemp("", "scheduler_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				logFile := filepath.Join(tempDir, "job.log")
				job := func(ctx context.Context) error {
					return os.WriteFile(logFile, []byte("executed"), 0644)
				}

				err = scheduler.AddJob("* * * * * *", job) // Every second
				So(err, ShouldBeNil)

				Convey("It should start and stop without error", func() {
					So(func() { scheduler.Start(context.Background()) }, ShouldNotPanic)

					// Wait briefly to ensure the job runs at least once
					time.Sleep(2 * time.Second)

					// Verify the job executed
					_, err := os.Stat(logFile)
					So(err, ShouldBeNil)

					// Stop the scheduler and ensure it stops cleanly
					So(func() { scheduler.Stop() }, ShouldNotPanic)

					// Verify no further executions after stopping
					os.Remove(logFile) // Clear the file
					time.Sleep(2 * time.Second)
					_, err = os.Stat(logFile)
					So(os.IsNotExist(err), ShouldBeTrue) // File should not be recreated
				})
			})
		})
	})
}
