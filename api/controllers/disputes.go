package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/disputedesk-backend/api/middleware"
	"github.com/angelmondragon/disputedesk-backend/api/responses"
	"github.com/angelmondragon/disputedesk-backend/api/validators"
	"github.com/angelmondragon/disputedesk-backend/internal/disputes"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

type createDisputeRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
	Description   string `json:"description" validate:"required"`
}

type updateDisputeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type resolveDisputeRequest struct {
	Status          string `json:"status" validate:"required"`
	ResolutionNotes string `json:"resolutionNotes" validate:"required"`
}

func disputesUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable")
}

// CreateDispute opens a dispute raised by the authenticated caller.
func CreateDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}

		var body createDisputeRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.CreateDispute(r.Context(), disputes.CreateInput{
			TransactionID: body.TransactionID,
			RaisedBy:      middleware.UserIDFromContext(r.Context()),
			Reason:        body.Reason,
			Description:   body.Description,
			Meta:          requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetDispute returns one enriched dispute.
func GetDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetDisputeByID(r.Context(), disputeID, middleware.AuthTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListDisputes returns a filtered, sorted page of disputes.
func ListDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}

		params, err := parseDisputeListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetAllDisputes(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseDisputeListParams(r *http.Request) (disputes.ListParams, error) {
	var params disputes.ListParams
	query := r.URL.Query()

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return params, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return params, err
	}
	params.Page = page
	params.Limit = limit

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseDisputeStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = status
	}
	params.RaisedBy = strings.TrimSpace(query.Get("raisedBy"))

	if params.Start, err = validators.ParseQueryTime(r, "startDate"); err != nil {
		return params, err
	}
	if params.End, err = validators.ParseQueryTime(r, "endDate"); err != nil {
		return params, err
	}
	params.SortBy = strings.TrimSpace(query.Get("sortBy"))
	params.SortOrder = strings.TrimSpace(query.Get("sortOrder"))
	return params, nil
}

// ListDisputesByTransaction returns every dispute raised against a transaction.
func ListDisputesByTransaction(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		transactionID, err := validators.RequireParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.GetDisputesByTransaction(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListDisputesByUser returns every dispute raised by a user.
func ListDisputesByUser(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		userID, err := validators.RequireParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.GetDisputesByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// UpdateDisputeStatus moves a non-terminal dispute to the requested status.
func UpdateDisputeStatus(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateDisputeStatusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseDisputeStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute status"))
			return
		}

		view, err := svc.UpdateDisputeStatus(r.Context(), disputes.StatusUpdateInput{
			DisputeID: disputeID,
			Status:    status,
			ActorID:   middleware.UserIDFromContext(r.Context()),
			Meta:      requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ResolveDispute closes a dispute as Resolved or Rejected.
func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ResolveDispute(r.Context(), disputes.ResolveInput{
			DisputeID:       disputeID,
			Status:          enums.DisputeStatus(body.Status),
			ResolutionNotes: body.ResolutionNotes,
			ActorID:         middleware.UserIDFromContext(r.Context()),
			Meta:            requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteDispute cancels a pending dispute.
func DeleteDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.DeleteDispute(r.Context(), disputes.DeleteInput{
			DisputeID: disputeID,
			ActorID:   middleware.UserIDFromContext(r.Context()),
			Meta:      requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dispute_id": disputeID, "deleted": true})
	}
}

// DisputeStatistics summarises disputes in an optional date window.
func DisputeStatistics(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, disputesUnavailable())
			return
		}
		start, err := validators.ParseQueryTime(r, "startDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "endDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.GetDisputeStatistics(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
