package disputes

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
)

const canonicalUUIDLen = 36

var legacyTransactionID = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{3,}$`)

// IsCanonicalUUID reports whether value is the 8-4-4-4-12 hex form, in any case.
func IsCanonicalUUID(value string) bool {
	if len(value) != canonicalUUIDLen {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}

// IsLegacyTransactionID reports whether value looks like a pre-UUID id such as TXN-2024-001.
func IsLegacyTransactionID(value string) bool {
	return legacyTransactionID.MatchString(value)
}

// normalizeTransactionID validates the id and returns its lowercase canonical form.
func normalizeTransactionID(ctx context.Context, logg *logger.Logger, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if IsLegacyTransactionID(value) && logg != nil {
		logg.Warn(logg.WithField(ctx, "transaction_id", value), "legacy transaction id format received")
	}
	if !IsCanonicalUUID(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id must be a valid UUID").
			WithDetails(map[string]any{"transaction_id": value})
	}
	return strings.ToLower(value), nil
}

func validateCreateInput(input CreateInput) (reason, description string, err error) {
	if strings.TrimSpace(input.RaisedBy) == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "raised by is required")
	}
	reason = strings.TrimSpace(input.Reason)
	description = strings.TrimSpace(input.Description)
	switch {
	case reason == "":
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	case len([]rune(reason)) > models.DisputeReasonMaxLen:
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "reason must be at most %d characters", models.DisputeReasonMaxLen)
	case description == "":
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case len([]rune(description)) > models.DisputeDescriptionMaxLen:
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "description must be at most %d characters", models.DisputeDescriptionMaxLen)
	}
	return reason, description, nil
}

func validateResolutionNotes(notes string) (string, error) {
	trimmed := strings.TrimSpace(notes)
	if len([]rune(trimmed)) > models.DisputeResolutionNotesMaxLen {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "resolution notes must be at most %d characters", models.DisputeResolutionNotesMaxLen)
	}
	return trimmed, nil
}
