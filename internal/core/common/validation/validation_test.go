package validation_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/common/validation"
)

func details(err *apperrors.AppError) []apperrors.ValidationError {
	gomega.Expect(err).ToNot(gomega.BeNil())
	d, ok := err.Details.(apperrors.ValidationErrors)
	gomega.Expect(ok).To(gomega.BeTrue())
	return d.Errors
}

var _ = ginkgo.Describe("ValidationBuilder", func() {
	ginkgo.It("passes when every rule holds", func() {
		v := validation.NewValidator()
		v.Field("email", "a@example.com").Required().Email()
		v.Field("term_months", 12).MinInt(1, apperrors.ErrCodeInvalidTerm)

		gomega.Expect(v.Validate()).To(gomega.BeNil())
	})

	ginkgo.It("collects one entry per failed rule", func() {
		v := validation.NewValidator()
		v.Field("email", "not-an-email").Email()
		v.Field("amount", 0.0).Positive(apperrors.ErrCodeInvalidAmount)
		v.Field("decision", "Maybe").OneOf("Approved", "Rejected")

		errs := details(v.Validate())

		gomega.Expect(errs).To(gomega.HaveLen(3))
		gomega.Expect(errs[0].Field).To(gomega.Equal("email"))
		gomega.Expect(errs[1].Code).To(gomega.Equal(string(apperrors.ErrCodeInvalidAmount)))
		gomega.Expect(errs[2].Message).To(gomega.ContainSubstring("Approved, Rejected"))
	})

	ginkgo.It("treats nil optional values as absent", func() {
		var score *int
		var dti *float64
		v := validation.NewValidator()
		v.Field("credit_score", score).MinInt(300, apperrors.ErrCodeInvalidFeature)
		v.Field("dti", dti).MinFloat(0, apperrors.ErrCodeInvalidFeature)

		gomega.Expect(v.Validate()).To(gomega.BeNil())
	})

	ginkgo.It("requires pointers to be set", func() {
		var amount *float64
		v := validation.NewValidator()
		v.Field("amount", amount).Required()

		errs := details(v.Validate())

		gomega.Expect(errs[0].Message).To(gomega.Equal("amount is required"))
	})

	ginkgo.DescribeTable("ValidateTermMonths",
		func(months int, ok bool) {
			err := validation.ValidateTermMonths(months)
			if ok {
				gomega.Expect(err).To(gomega.BeNil())
			} else {
				gomega.Expect(err).ToNot(gomega.BeNil())
			}
		},
		ginkgo.Entry("zero", 0, false),
		ginkgo.Entry("one", 1, true),
		ginkgo.Entry("upper bound", 480, true),
		ginkgo.Entry("above bound", 481, false),
	)

	ginkgo.It("rejects non-positive loan amounts", func() {
		gomega.Expect(validation.ValidateLoanAmount(-5)).ToNot(gomega.BeNil())
		gomega.Expect(validation.ValidateLoanAmount(5000)).To(gomega.BeNil())
	})
})
