package expense

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltStore", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltStore
	)

	newRecord := func(id string, date time.Time, amount string) *Record {
		return &Record{
			ID:        id,
			Vendor:    "Staples",
			Date:      date,
			Amount:    decimal.RequireFromString(amount),
			Currency:  "USD",
			Category:  CategoryOfficeSupplies,
			Source:    SourceExtracted,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("CreateExpense", func() {
		var (
			record *Record
			err    error
		)

		BeforeEach(func() {
			record = newRecord("test-id", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "45.00")
		})

		JustBeforeEach(func() {
			err = db.CreateExpense(record)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should persist the record", func() {
				saved, getErr := db.GetExpense("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})

			It("should round-trip the amount exactly", func() {
				saved, _ := db.GetExpense("test-id")
				Expect(saved.Amount.Equal(record.Amount)).To(BeTrue())
			})
		})
	})

	Describe("GetExpense", func() {
		When("the record does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetExpense("nonexistent")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("UpdateExpense", func() {
		var (
			expenseID string
			mutate    func(*Record) error
			updated   *Record
			err       error
		)

		BeforeEach(func() {
			expenseID = "test-id"
			mutate = func(r *Record) error {
				r.Vendor = "Staples Inc"
				return nil
			}
			Expect(db.CreateExpense(newRecord("test-id", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "45.00"))).NotTo(HaveOccurred())
		})

		JustBeforeEach(func() {
			updated, err = db.UpdateExpense(expenseID, mutate)
		})

		When("the update succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the mutated record", func() {
				Expect(updated.Vendor).To(Equal("Staples Inc"))
			})

			It("should bump the version", func() {
				Expect(updated.Version).To(Equal(1))
			})

			It("should persist the mutation", func() {
				saved, _ := db.GetExpense("test-id")
				Expect(saved.Vendor).To(Equal("Staples Inc"))
			})
		})

		When("mutate returns an error", func() {
			var mutateErr error

			BeforeEach(func() {
				mutateErr = errors.New("invalid correction")
				mutate = func(r *Record) error {
					r.Vendor = "should not stick"
					return mutateErr
				}
			})

			It("returns the error untouched", func() {
				Expect(err).To(MatchError(mutateErr))
			})

			It("leaves the stored record unchanged", func() {
				saved, _ := db.GetExpense("test-id")
				Expect(saved.Vendor).To(Equal("Staples"))
			})

			It("does not bump the version", func() {
				saved, _ := db.GetExpense("test-id")
				Expect(saved.Version).To(Equal(0))
			})
		})

		When("the record does not exist", func() {
			BeforeEach(func() {
				expenseID = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})

		When("updates race on the same record", func() {
			It("serializes them; every write lands", func() {
				var wg sync.WaitGroup
				for i := 0; i < 10; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, updateErr := db.UpdateExpense("test-id", func(r *Record) error {
							r.Amount = r.Amount.Add(decimal.RequireFromString("1.00"))
							return nil
						})
						Expect(updateErr).NotTo(HaveOccurred())
					}()
				}
				wg.Wait()

				saved, getErr := db.GetExpense("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Amount.StringFixed(2)).To(Equal("55.00"))
				Expect(saved.Version).To(Equal(11))
			})
		})
	})

	Describe("ListExpenses", func() {
		var (
			query   Query
			records []*Record
			err     error
		)

		BeforeEach(func() {
			query = Query{}
			Expect(db.CreateExpense(&Record{
				ID:       "id-b",
				Vendor:   "Whole Foods",
				Date:     time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
				Amount:   decimal.RequireFromString("82.17"),
				Category: CategoryGroceries,
			})).NotTo(HaveOccurred())
			Expect(db.CreateExpense(&Record{
				ID:       "id-a",
				Vendor:   "Staples",
				Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Amount:   decimal.RequireFromString("45.00"),
				Category: CategoryOfficeSupplies,
			})).NotTo(HaveOccurred())
			Expect(db.CreateExpense(&Record{
				ID:       "id-c",
				Vendor:   "Uber",
				Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Amount:   decimal.RequireFromString("18.40"),
				Category: CategoryRideshare,
			})).NotTo(HaveOccurred())
		})

		JustBeforeEach(func() {
			records, err = db.ListExpenses(query)
		})

		When("no filter is applied", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return all records", func() {
				Expect(records).To(HaveLen(3))
			})

			It("should sort by date ascending with ID tiebreak", func() {
				Expect(records[0].ID).To(Equal("id-a"))
				Expect(records[1].ID).To(Equal("id-c"))
				Expect(records[2].ID).To(Equal("id-b"))
			})
		})

		When("a date range is applied", func() {
			BeforeEach(func() {
				query = Query{
					From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
					To:   time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
				}
			})

			It("should return only records inside the range", func() {
				Expect(records).To(HaveLen(1))
				Expect(records[0].ID).To(Equal("id-b"))
			})
		})

		When("a category filter is applied", func() {
			BeforeEach(func() {
				query = Query{Category: CategoryRideshare}
			})

			It("should return only that category", func() {
				Expect(records).To(HaveLen(1))
				Expect(records[0].ID).To(Equal("id-c"))
			})
		})

		When("a vendor filter is applied", func() {
			BeforeEach(func() {
				query = Query{Vendor: "foods"}
			})

			It("should match case-insensitive substrings", func() {
				Expect(records).To(HaveLen(1))
				Expect(records[0].Vendor).To(Equal("Whole Foods"))
			})
		})

		When("nothing matches", func() {
			BeforeEach(func() {
				query = Query{Vendor: "no such vendor"}
			})

			It("should return an empty slice, not nil", func() {
				Expect(records).NotTo(BeNil())
				Expect(records).To(BeEmpty())
			})
		})
	})

	Describe("DeleteExpense", func() {
		BeforeEach(func() {
			Expect(db.CreateExpense(newRecord("test-id", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "45.00"))).NotTo(HaveOccurred())
		})

		When("the record exists", func() {
			It("removes it", func() {
				Expect(db.DeleteExpense("test-id")).NotTo(HaveOccurred())
				_, err := db.GetExpense("test-id")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})

		When("the record does not exist", func() {
			It("returns ErrNotFound", func() {
				err := db.DeleteExpense("nonexistent")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("concurrent creates", func() {
		It("persists every record exactly once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					record := newRecord(fmt.Sprintf("id-%02d", n), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "10.00")
					Expect(db.CreateExpense(record)).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			records, err := db.ListExpenses(Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(20))
		})
	})
})
