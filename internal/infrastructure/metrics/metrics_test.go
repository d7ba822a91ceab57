package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("Given Metrics", t, func() {
		finished := time.Date(2020, 3, 1, 3, 0, 0, 0, time.UTC)

		Convey("When recording a successful run", func() {
			m := New("", "indexcurator")
			m.RecordRun("changed", 3, 3, 2*time.Second, finished, true)

			Convey("It should update every collector", func() {
				So(testutil.ToFloat64(m.runsTotal.WithLabelValues("changed")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.deletedTotal), ShouldEqual, 3)
				So(testutil.ToFloat64(m.eligible), ShouldEqual, 3)
				So(testutil.ToFloat64(m.lastSuccess), ShouldEqual, float64(finished.Unix()))
				So(testutil.CollectAndCount(m.runDuration), ShouldEqual, 1)
			})
		})

		Convey("When recording a failed run", func() {
			m := New("", "indexcurator")
			m.RecordRun("deletion_failed", 2, 0, time.Second, finished, false)

			Convey("It should leave success gauges untouched", func() {
				So(testutil.ToFloat64(m.runsTotal.WithLabelValues("deletion_failed")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.lastSuccess), ShouldEqual, 0)
				So(testutil.ToFloat64(m.deletedTotal), ShouldEqual, 0)
			})
		})

		Convey("When no Pushgateway is configured", func() {
			m := New("", "indexcurator")
			So(m.PushEnabled(), ShouldBeFalse)
			So(m.Push(), ShouldBeNil)
		})

		Convey("When a Pushgateway is configured", func() {
			var mu sync.Mutex
			var paths []string
			gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				mu.Lock()
				paths = append(paths, r.Method+" "+r.URL.Path)
				mu.Unlock()
				w.WriteHeader(http.StatusOK)
			}))
			defer gateway.Close()

			m := New(gateway.URL, "indexcurator")
			m.RecordRun("unchanged", 0, 0, time.Second, finished, true)
			err := m.Push()

			Convey("It should PUT the job group", func() {
				So(err, ShouldBeNil)
				mu.Lock()
				defer mu.Unlock()
				So(paths, ShouldResemble, []string{"PUT /metrics/job/indexcurator"})
			})
		})
	})
}
