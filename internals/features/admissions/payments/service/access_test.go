package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/payments/model"
	helperAuth "admissions_backend/internals/helpers/auth"
)

func TestCanAccess(t *testing.T) {
	payer := uuid.New()
	applicant := uuid.New()
	appID := uuid.New()
	offerID := uuid.New()

	app := &applicationModel.ApplicationModel{ApplicationID: appID, ApplicationApplicantID: applicant}
	offer := &offerModel.AdmissionOfferModel{AdmissionOfferID: offerID, AdmissionOfferApplicantID: applicant}
	form := &model.PaymentModel{PaymentPayerID: payer, PaymentType: model.TypeFormPurchase, PaymentTargetID: appID}
	fee := &model.PaymentModel{PaymentPayerID: payer, PaymentType: model.TypeAcceptanceFee, PaymentTargetID: offerID}

	cases := []struct {
		name  string
		actor uuid.UUID
		p     *model.PaymentModel
		app   *applicationModel.ApplicationModel
		offer *offerModel.AdmissionOfferModel
		want  bool
	}{
		{"payer", payer, form, nil, nil, true},
		{"application owner", applicant, form, app, nil, true},
		{"offer owner", applicant, fee, nil, offer, true},
		{"stranger", uuid.New(), form, app, offer, false},
		{"owner of another application", applicant, form, &applicationModel.ApplicationModel{ApplicationID: uuid.New(), ApplicationApplicantID: applicant}, nil, false},
		{"application does not grant offer fees", applicant, fee, app, nil, false},
		{"anonymous", uuid.Nil, form, app, nil, false},
		{"no payment", payer, nil, nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanAccess(helperAuth.Actor{ID: tc.actor}, tc.p, tc.app, tc.offer)
			assert.Equal(t, tc.want, got)
		})
	}
}
