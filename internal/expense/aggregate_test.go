package expense

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Summarize", func() {
	var (
		records []*Record
		topN    int
		summary *Summary
	)

	record := func(id, vendor string, date time.Time, amount string, category Category) *Record {
		return &Record{
			ID:       id,
			Vendor:   vendor,
			Date:     date,
			Amount:   decimal.RequireFromString(amount),
			Category: category,
		}
	}

	BeforeEach(func() {
		topN = 5
		records = []*Record{
			record("id1", "Staples", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "45.00", CategoryOfficeSupplies),
			record("id2", "Whole Foods", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), "82.17", CategoryGroceries),
			record("id3", "Whole Foods", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), "30.83", CategoryGroceries),
			record("id4", "Uber", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), "18.40", CategoryRideshare),
		}
	})

	JustBeforeEach(func() {
		summary = Summarize(records, topN)
	})

	When("records exist", func() {
		It("should sum the total exactly", func() {
			Expect(summary.Total.StringFixed(2)).To(Equal("176.40"))
		})

		It("should count the records", func() {
			Expect(summary.Count).To(Equal(4))
		})

		It("should bucket by category", func() {
			Expect(summary.ByCategory[CategoryGroceries].StringFixed(2)).To(Equal("113.00"))
			Expect(summary.ByCategory[CategoryOfficeSupplies].StringFixed(2)).To(Equal("45.00"))
			Expect(summary.ByCategory[CategoryRideshare].StringFixed(2)).To(Equal("18.40"))
		})

		It("should bucket by the record date's month", func() {
			Expect(summary.ByMonth["2024-01"].StringFixed(2)).To(Equal("127.17"))
			Expect(summary.ByMonth["2024-02"].StringFixed(2)).To(Equal("49.23"))
		})

		It("should rank vendors by total spend", func() {
			Expect(summary.TopVendors).To(HaveLen(3))
			Expect(summary.TopVendors[0].Vendor).To(Equal("Whole Foods"))
			Expect(summary.TopVendors[0].Total.StringFixed(2)).To(Equal("113.00"))
			Expect(summary.TopVendors[1].Vendor).To(Equal("Staples"))
			Expect(summary.TopVendors[2].Vendor).To(Equal("Uber"))
		})

		It("should be idempotent over the same snapshot", func() {
			again := Summarize(records, topN)
			Expect(again.Total.Equal(summary.Total)).To(BeTrue())
			Expect(again.Count).To(Equal(summary.Count))
			Expect(again.TopVendors).To(Equal(summary.TopVendors))
		})

		It("should not mutate the records", func() {
			Expect(records[0].Amount.StringFixed(2)).To(Equal("45.00"))
		})
	})

	When("vendors tie on total", func() {
		BeforeEach(func() {
			records = []*Record{
				record("id1", "Beta", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "10.00", CategoryShopping),
				record("id2", "Alpha", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "10.00", CategoryShopping),
			}
		})

		It("breaks the tie by vendor name", func() {
			Expect(summary.TopVendors[0].Vendor).To(Equal("Alpha"))
			Expect(summary.TopVendors[1].Vendor).To(Equal("Beta"))
		})
	})

	When("more vendors exist than topN", func() {
		BeforeEach(func() {
			topN = 2
		})

		It("truncates the ranking", func() {
			Expect(summary.TopVendors).To(HaveLen(2))
		})
	})

	When("a record has no vendor", func() {
		BeforeEach(func() {
			records = append(records, record("id5", "", time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), "5.00", CategoryUncategorized))
		})

		It("includes it in the total", func() {
			Expect(summary.Total.StringFixed(2)).To(Equal("181.40"))
		})

		It("excludes it from the vendor ranking", func() {
			for _, v := range summary.TopVendors {
				Expect(v.Vendor).NotTo(BeEmpty())
			}
		})
	})

	When("no records exist", func() {
		BeforeEach(func() {
			records = nil
		})

		It("returns zero totals and empty buckets", func() {
			Expect(summary.Total.IsZero()).To(BeTrue())
			Expect(summary.Count).To(Equal(0))
			Expect(summary.ByCategory).To(BeEmpty())
			Expect(summary.ByMonth).To(BeEmpty())
			Expect(summary.TopVendors).To(BeEmpty())
		})
	})
})
