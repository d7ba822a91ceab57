package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/indexcurator/internal/domain"
)

func sampleReport(started time.Time, deleted ...string) domain.Report {
	req := domain.CleanupRequest{Host: "search.local", Port: 443, AgeThreshold: 45, AgeUnit: domain.UnitDays}
	res := domain.NewCleanupResult(deleted, false)
	return domain.Report{
		RunID:      "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Request:    &req,
		Result:     &res,
	}
}

func TestLocalArchive(t *testing.T) {
	Convey("Given a LocalArchive", t, func() {
		tempDir, err := os.MkdirTemp("", "local_archive_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		ctx := context.Background()
		now := time.Date(2020, 3, 1, 3, 0, 0, 0, time.UTC)

		Convey("NewLocal", func() {
			Convey("When creating with non-existent path", func() {
				newPath := filepath.Join(tempDir, "new", "nested", "dir")
				archive, err := NewLocal(newPath, 7)

				Convey("It should create directory and succeed", func() {
					So(err, ShouldBeNil)
					So(archive, ShouldNotBeNil)
					So(archive.Name(), ShouldEqual, "local")

					info, err := os.Stat(newPath)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})
		})

		Convey("Report method", func() {
			archive, _ := NewLocal(tempDir, 7)
			archive.now = func() time.Time { return now }

			Convey("When archiving a run", func() {
				r := sampleReport(now, "logs-2020.01.01")
				err := archive.Report(ctx, r)

				Convey("It should write the report as JSON", func() {
					So(err, ShouldBeNil)

					content, err := os.ReadFile(archive.GetPath("cleanup_20200301_030000_1b4e28ba.json"))
					So(err, ShouldBeNil)

					var decoded map[string]interface{}
					So(json.Unmarshal(content, &decoded), ShouldBeNil)
					So(decoded["run_id"], ShouldEqual, r.RunID)
					result := decoded["result"].(map[string]interface{})
					So(result["changed"], ShouldEqual, true)
					So(result["index"], ShouldResemble, []interface{}{"logs-2020.01.01"})
				})
			})

			Convey("When older reports exist", func() {
				So(archive.Report(ctx, sampleReport(now.AddDate(0, 0, -10))), ShouldBeNil)
				So(archive.Report(ctx, sampleReport(now.AddDate(0, 0, -3))), ShouldBeNil)
				os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("keep"), 0644)

				err := archive.Report(ctx, sampleReport(now))

				Convey("It should prune only reports past retention", func() {
					So(err, ShouldBeNil)
					files, err := archive.List(ctx)
					So(err, ShouldBeNil)
					So(len(files), ShouldEqual, 3)
					So(files, ShouldContain, "cleanup_20200227_030000_1b4e28ba.json")
					So(files, ShouldContain, "cleanup_20200301_030000_1b4e28ba.json")
					So(files, ShouldContain, "notes.txt")
					So(files, ShouldNotContain, "cleanup_20200220_030000_1b4e28ba.json")
				})
			})
		})

		Convey("Delete method", func() {
			archive, _ := NewLocal(tempDir, 7)

			Convey("When deleting non-existent file", func() {
				err := archive.Delete(ctx, "nonexistent.json")

				Convey("It should return error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to delete report")
				})
			})
		})
	})
}

func TestFilename(t *testing.T) {
	Convey("Given a report", t, func() {
		started := time.Date(2021, 6, 30, 23, 59, 1, 0, time.UTC)

		Convey("It should embed the start time and short run id", func() {
			name := Filename(domain.Report{RunID: "abcdef0123456789", StartedAt: started})
			So(name, ShouldEqual, "cleanup_20210630_235901_abcdef01.json")

			ts, err := extractTimestamp(name)
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, started)
		})

		Convey("It should reject foreign file names", func() {
			_, err := extractTimestamp("backup_20210630_235901.sql")
			So(err, ShouldNotBeNil)
		})
	})
}
