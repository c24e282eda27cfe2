package strutil_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mattn/go-runewidth"

	"github.com/skaphos/gitfleet/internal/strutil"
)

var _ = Describe("Truncate", func() {
	It("returns short values unchanged", func() {
		Expect(strutil.Truncate("fatal", 20)).To(Equal("fatal"))
		Expect(strutil.Truncate("exactly-ten", 11)).To(Equal("exactly-ten"))
	})

	It("cuts long values to the width including the ellipsis", func() {
		got := strutil.Truncate(strings.Repeat("x", 60), 50)
		Expect(runewidth.StringWidth(got)).To(Equal(50))
		Expect(got).To(HaveSuffix(strutil.Ellipsis))
	})

	It("counts wide runes as two cells", func() {
		got := strutil.Truncate("日本語のエラーメッセージ", 10)
		Expect(runewidth.StringWidth(got)).To(BeNumerically("<=", 10))
		Expect(got).To(HaveSuffix(strutil.Ellipsis))
	})

	It("disables truncation for non-positive widths", func() {
		Expect(strutil.Truncate("anything", 0)).To(Equal("anything"))
	})

	It("omits the ellipsis when the width cannot hold it", func() {
		Expect(strutil.Truncate("abcdef", 2)).To(Equal("ab"))
	})
})

var _ = Describe("RelativeTime", func() {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	DescribeTable("renders the age bucket",
		func(t *time.Time, want string) {
			Expect(strutil.RelativeTime(t, now)).To(Equal(want))
		},
		Entry("unknown", nil, "unknown"),
		Entry("minutes", at(5*time.Minute), "5m ago"),
		Entry("hours", at(3*time.Hour), "3h ago"),
		Entry("yesterday", at(30*time.Hour), "yesterday"),
		Entry("days", at(4*24*time.Hour), "4d ago"),
		Entry("weeks", at(15*24*time.Hour), "2w ago"),
		Entry("date", at(90*24*time.Hour), "2024-03-17"),
		Entry("future clamps to now", at(-time.Hour), "0m ago"),
	)
})
