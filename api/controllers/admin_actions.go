package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/disputedesk-backend/api/middleware"
	"github.com/angelmondragon/disputedesk-backend/api/responses"
	"github.com/angelmondragon/disputedesk-backend/api/validators"
	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/pagination"
)

type recordAdminActionRequest struct {
	ActionType    string         `json:"actionType" validate:"required"`
	TargetID      string         `json:"targetId" validate:"required"`
	Description   string         `json:"description" validate:"required,max=1000"`
	ActionDetails map[string]any `json:"actionDetails"`
}

func auditUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "audit log service unavailable")
}

// RecordAdminAction appends a manual entry to the audit log for the calling admin.
func RecordAdminAction(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}

		var body recordAdminActionRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actionType, err := enums.ParseAdminActionType(strings.TrimSpace(body.ActionType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action type"))
			return
		}

		action, err := svc.Record(r.Context(), auditlog.RecordInput{
			AdminID:     middleware.UserIDFromContext(r.Context()),
			ActionType:  actionType,
			TargetID:    body.TargetID,
			Description: body.Description,
			Details:     body.ActionDetails,
			IPAddress:   clientIP(r),
			UserAgent:   r.UserAgent(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, action)
	}
}

// GetAdminAction returns a single audit entry.
func GetAdminAction(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		actionID, err := validators.ParseUUIDParam(r, "actionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action, err := svc.GetAction(r.Context(), actionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, action)
	}
}

// ListAdminActions returns a filtered, sorted page of audit entries.
func ListAdminActions(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}

		params, err := parseAdminActionListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListActions(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseAdminActionListParams(r *http.Request) (auditlog.ListParams, error) {
	var params auditlog.ListParams
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

	params.AdminID = strings.TrimSpace(query.Get("adminId"))
	if raw := strings.TrimSpace(query.Get("actionType")); raw != "" {
		actionType, err := enums.ParseAdminActionType(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action type filter")
		}
		params.ActionType = actionType
	}
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

// ListAdminActionsByAdmin returns every entry recorded by one admin.
func ListAdminActionsByAdmin(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		adminID, err := validators.RequireParam(r, "adminId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByAdmin(r.Context(), adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListAdminActionsByType returns every entry of one action type.
func ListAdminActionsByType(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		raw, err := validators.RequireParam(r, "actionType")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actionType, err := enums.ParseAdminActionType(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action type"))
			return
		}

		items, err := svc.ListByType(r.Context(), actionType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListAdminActionsByTarget returns every entry that touched one target.
func ListAdminActionsByTarget(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		targetID, err := validators.RequireParam(r, "targetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByTarget(r.Context(), targetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// RecentAdminActions returns entries from the last `hours` hours.
func RecentAdminActions(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		hours, err := validators.ParseQueryInt(r, "hours", auditlog.DefaultRecentHours, 1, 24*90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Recent(r.Context(), hours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminActivity returns per-day activity for one admin.
func AdminActivity(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		adminID, err := validators.RequireParam(r, "adminId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", auditlog.DefaultActivityDays, 1, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.AdminActivity(r.Context(), adminID, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, activity)
	}
}

// AdminActionStatistics counts entries by type within a required date window.
func AdminActionStatistics(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		start, end, err := requiredWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Statistics(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ExportAdminActions returns every entry within a required date window.
func ExportAdminActions(svc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, auditUnavailable())
			return
		}
		start, end, err := requiredWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Export(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func requiredWindow(r *http.Request) (*time.Time, *time.Time, error) {
	start, err := validators.ParseQueryTime(r, "startDate")
	if err != nil {
		return nil, nil, err
	}
	end, err := validators.ParseQueryTime(r, "endDate")
	if err != nil {
		return nil, nil, err
	}
	if start == nil || end == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "startDate and endDate are required")
	}
	return start, end, nil
}
