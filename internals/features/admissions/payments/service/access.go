package service

import (
	"github.com/google/uuid"

	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/payments/model"
	helperAuth "admissions_backend/internals/helpers/auth"
)

// CanAccess is the one ownership rule for payments: the actor paid it, or
// owns the application or offer it targets. app and offer may be nil when
// the target no longer exists.
func CanAccess(actor helperAuth.Actor, p *model.PaymentModel, app *applicationModel.ApplicationModel, offer *offerModel.AdmissionOfferModel) bool {
	if p == nil || actor.ID == uuid.Nil {
		return false
	}
	if p.PaymentPayerID == actor.ID {
		return true
	}
	switch p.PaymentType {
	case model.TypeFormPurchase:
		return app != nil &&
			app.ApplicationID == p.PaymentTargetID &&
			app.ApplicationApplicantID == actor.ID
	case model.TypeAdmissionFee, model.TypeAcceptanceFee:
		return offer != nil &&
			offer.AdmissionOfferID == p.PaymentTargetID &&
			offer.AdmissionOfferApplicantID == actor.ID
	}
	return false
}
