package domain

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDescribeIndex(t *testing.T) {
	Convey("Given DescribeIndex", t, func() {
		Convey("When the name embeds a date stamp", func() {
			d := DescribeIndex("logs-2020.01.01")
			So(d.HasDate(), ShouldBeTrue)
			So(*d.Date, ShouldEqual, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
		})

		Convey("When the stamp uses a dot separator in the prefix", func() {
			d := DescribeIndex("logs.2099.01.01")
			So(d.HasDate(), ShouldBeTrue)
			So(d.Date.Year(), ShouldEqual, 2099)
		})

		Convey("When the stamp is in the middle of the name", func() {
			d := DescribeIndex("cwl-2021.06.30-000001")
			So(d.HasDate(), ShouldBeTrue)
			So(d.Date.Month(), ShouldEqual, time.June)
		})

		Convey("When the name has no date", func() {
			d := DescribeIndex("other-service")
			So(d.HasDate(), ShouldBeFalse)
			So(d.OlderThan(time.Now()), ShouldBeFalse)
		})

		Convey("When the stamp is not a calendar date", func() {
			d := DescribeIndex("logs-2020.13.40")
			So(d.HasDate(), ShouldBeFalse)
		})
	})
}
