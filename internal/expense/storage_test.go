package expense

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalImageStore", func() {
	var store *LocalImageStore

	BeforeEach(func() {
		var err error
		store, err = NewLocalImageStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		When("saving an image", func() {
			It("returns a content-derived reference with the right extension", func() {
				ref, err := store.Save([]byte("image bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(ref).To(HaveSuffix(".jpg"))
			})

			It("returns the same reference for the same bytes", func() {
				ref1, err := store.Save([]byte("image bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				ref2, err := store.Save([]byte("image bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(ref2).To(Equal(ref1))
			})

			It("returns different references for different bytes", func() {
				ref1, err := store.Save([]byte("first"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				ref2, err := store.Save([]byte("second"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(ref2).NotTo(Equal(ref1))
			})
		})
	})

	Describe("Get", func() {
		When("the image exists", func() {
			var ref string

			BeforeEach(func() {
				var err error
				ref, err = store.Save([]byte("pdf bytes"), "application/pdf")
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the stored bytes", func() {
				data, _, err := store.Get(ref)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("pdf bytes"))
			})

			It("recovers the content type from the reference", func() {
				_, contentType, err := store.Get(ref)
				Expect(err).NotTo(HaveOccurred())
				Expect(contentType).To(Equal("application/pdf"))
			})
		})

		When("the image does not exist", func() {
			It("returns an error", func() {
				_, _, err := store.Get("nonexistent.jpg")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		When("the image exists", func() {
			It("removes it", func() {
				ref, err := store.Save([]byte("image bytes"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.Delete(ref)).NotTo(HaveOccurred())
				_, _, err = store.Get(ref)
				Expect(err).To(HaveOccurred())
			})
		})

		When("the image does not exist", func() {
			It("returns an error", func() {
				Expect(store.Delete("nonexistent.jpg")).To(HaveOccurred())
			})
		})
	})
})
