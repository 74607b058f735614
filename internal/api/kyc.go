package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/kyc"
)

type KYCService interface {
	Submit(ctx context.Context, patientID uuid.UUID, slots kyc.Slots) (*kyc.Document, error)
	BeginReview(ctx context.Context, id uuid.UUID) (*kyc.Document, error)
	Review(ctx context.Context, id uuid.UUID, in kyc.ReviewInput) (*kyc.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*kyc.Document, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*kyc.Document, error)
	List(ctx context.Context, q kyc.Query) ([]kyc.Document, int, error)
}

func submitKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitKYCRequest
		if err := decode(r, &req); err != nil {
			rs.fail(w, r, err)
			return
		}
		if req.PatientID == uuid.Nil {
			if sess := SessionFrom(r.Context()); sess.PatientID != nil {
				req.PatientID = *sess.PatientID
			}
		}

		slots := make(kyc.Slots, len(req.Documents))
		for k, v := range req.Documents {
			slots[kyc.Slot(k)] = v
		}

		doc, err := svc.Submit(r.Context(), req.PatientID, slots)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toKYC(doc))
	}
}

func activeKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := pathID(r, "patientID")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		doc, err := svc.ActiveForPatient(r.Context(), patientID)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toKYC(doc))
	}
}

// listKYCHandler serves the admin queue. status selects a bucket: pending
// (the default), approved, rejected or all.
func listKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket, ok := kyc.ParseBucket(r.URL.Query().Get("status"))
		if !ok {
			rs.fail(w, r, apperr.Validation(apperr.ReasonInvalidBody, "status must be pending, approved, rejected or all"))
			return
		}
		page, err := queryInt(r, "page", 1)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		docs, total, err := svc.List(r.Context(), kyc.Query{Bucket: bucket, Page: page, Limit: limit})
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		if page < 1 {
			page = 1
		}
		out := KYCPage{Items: make([]KYCResponse, 0, len(docs)), Total: total, Page: page, Limit: effectiveLimit(limit)}
		for i := range docs {
			out.Items = append(out.Items, toKYC(&docs[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		doc, err := svc.Get(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toKYC(doc))
	}
}

func claimKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		doc, err := svc.BeginReview(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toKYC(doc))
	}
}

func reviewKYCHandler(svc KYCService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		var req ReviewKYCRequest
		if err := decode(r, &req); err != nil {
			rs.fail(w, r, err)
			return
		}

		in := kyc.ReviewInput{Action: kyc.Action(req.Action), Remarks: req.Remarks}
		if reviewer := SessionFrom(r.Context()).Reviewer(); reviewer != nil {
			in.ReviewerID = *reviewer
		}

		doc, err := svc.Review(r.Context(), id, in)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toKYC(doc))
	}
}
