package enums

import "fmt"

// AdminActionType maps to the action_type column of admin_actions.
type AdminActionType string

const (
	AdminActionBlockUser           AdminActionType = "BlockUser"
	AdminActionUnblockUser         AdminActionType = "UnblockUser"
	AdminActionApproveWithdrawal   AdminActionType = "ApproveWithdrawal"
	AdminActionRejectWithdrawal    AdminActionType = "RejectWithdrawal"
	AdminActionCreateDispute       AdminActionType = "CreateDispute"
	AdminActionUpdateDisputeStatus AdminActionType = "UpdateDisputeStatus"
	AdminActionResolveDispute      AdminActionType = "ResolveDispute"
	AdminActionDeleteDispute       AdminActionType = "DeleteDispute"
	AdminActionForceRefund         AdminActionType = "ForceRefund"
	AdminActionDelistListing       AdminActionType = "DelistListing"
	AdminActionFreezeListing       AdminActionType = "FreezeListing"
	AdminActionUnfreezeListing     AdminActionType = "UnfreezeListing"
	AdminActionUpdateConfig        AdminActionType = "UpdateConfig"
	AdminActionIssueCertificate    AdminActionType = "IssueCertificate"
	AdminActionRevokeCertificate   AdminActionType = "RevokeCertificate"
	AdminActionGenerateReport      AdminActionType = "GenerateReport"
	AdminActionDeleteReport        AdminActionType = "DeleteReport"
	AdminActionCleanupOldReports   AdminActionType = "CleanupOldReports"
)

var validAdminActionTypes = []AdminActionType{
	AdminActionBlockUser,
	AdminActionUnblockUser,
	AdminActionApproveWithdrawal,
	AdminActionRejectWithdrawal,
	AdminActionCreateDispute,
	AdminActionUpdateDisputeStatus,
	AdminActionResolveDispute,
	AdminActionDeleteDispute,
	AdminActionForceRefund,
	AdminActionDelistListing,
	AdminActionFreezeListing,
	AdminActionUnfreezeListing,
	AdminActionUpdateConfig,
	AdminActionIssueCertificate,
	AdminActionRevokeCertificate,
	AdminActionGenerateReport,
	AdminActionDeleteReport,
	AdminActionCleanupOldReports,
}

// String implements fmt.Stringer.
func (a AdminActionType) String() string {
	return string(a)
}

// IsValid reports whether the value matches a known admin action type.
func (a AdminActionType) IsValid() bool {
	for _, candidate := range validAdminActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdminActionType converts raw input into AdminActionType.
func ParseAdminActionType(value string) (AdminActionType, error) {
	for _, candidate := range validAdminActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin action type %q", value)
}
