package status

// Asset checkout statuses.
const (
	// AssetAvailable means the asset is in stock and can be checked out.
	AssetAvailable Status = "available"
	// AssetDeployed means the asset is checked out and the window is current.
	AssetDeployed Status = "deployed"
	// AssetOverdue means the expected check-in date has passed.
	AssetOverdue Status = "overdue"
	// AssetPending means the asset is reserved but not yet handed over.
	AssetPending Status = "pending"
	// AssetRetired means the asset left the inventory for good.
	AssetRetired Status = "retired"
)

// Virtual machine lifecycle statuses.
const (
	// VMActive means the VM is inside its approved lifetime.
	VMActive Status = "Active"
	// VMOverdueNotified means the VM is past its end date and the owner has
	// been notified. Set by an explicit user action, never derived.
	VMOverdueNotified Status = "Overdue - Notified"
	// VMOverdueNotNotified means the VM is past its end date and nobody has
	// been notified yet.
	VMOverdueNotNotified Status = "Overdue - Not Notified"
	// VMDecommissioned is the terminal VM state.
	VMDecommissioned Status = "Decommissioned"
)

// IAM grant lifecycle statuses.
const (
	// IAMActive means the grant window is current.
	IAMActive Status = "Active"
	// IAMExpired means the grant window has passed without explicit action.
	IAMExpired Status = "Expired"
	// IAMSuspended means the grant was put on hold by an operator.
	IAMSuspended Status = "Suspended"
	// IAMRevoked is the terminal grant state.
	IAMRevoked Status = "Revoked"
)

// Assets derives the checkout status of inventory assets. Pending and
// retired are human-set; everything else follows the checkout window.
var Assets = Profile{
	Default: AssetAvailable,
	Active:  AssetDeployed,
	Overdue: AssetOverdue,
	Sticky:  []Status{AssetPending, AssetRetired},
}

// VirtualMachines derives the lifecycle status of VMs. A notified-overdue or
// decommissioned VM stays that way until an operator changes it.
var VirtualMachines = Profile{
	Default: VMActive,
	Active:  VMActive,
	Overdue: VMOverdueNotNotified,
	Sticky:  []Status{VMOverdueNotified, VMDecommissioned},
}

// IAMGrants derives the lifecycle status of IAM access grants.
var IAMGrants = Profile{
	Default: IAMActive,
	Active:  IAMActive,
	Overdue: IAMExpired,
	Sticky:  []Status{IAMSuspended, IAMRevoked},
}

// Action is a status-changing operation offered to the user. Which actions a
// row offers is a pure function of the derived status, never of the raw
// stored value, so the buttons always agree with the label shown next to them.
type Action string

const (
	// ActionCheckOut hands an asset to a user and opens a checkout window.
	ActionCheckOut Action = "checkout"
	// ActionCheckIn returns an asset to stock.
	ActionCheckIn Action = "checkin"
	// ActionRetire removes an asset from the inventory (sticky).
	ActionRetire Action = "retire"
	// ActionDecommission terminates a VM (sticky).
	ActionDecommission Action = "decommission"
	// ActionMarkNotified acknowledges an overdue VM (sticky).
	ActionMarkNotified Action = "mark-notified"
	// ActionRevoke terminates an IAM grant (sticky).
	ActionRevoke Action = "revoke"
	// ActionSuspend puts an IAM grant on hold (sticky).
	ActionSuspend Action = "suspend"
	// ActionReinstate returns a suspended IAM grant to derivation.
	ActionReinstate Action = "reinstate"
)

// AssetActions returns the actions available for an asset in the given
// derived status.
func AssetActions(s Status) []Action {
	switch s {
	case AssetAvailable:
		return []Action{ActionCheckOut, ActionRetire}
	case AssetDeployed, AssetOverdue:
		return []Action{ActionCheckIn}
	case AssetPending:
		return []Action{ActionCheckOut}
	default: // retired
		return nil
	}
}

// VMActions returns the actions available for a VM in the given derived status.
func VMActions(s Status) []Action {
	switch s {
	case VMActive:
		return []Action{ActionDecommission}
	case VMOverdueNotNotified:
		return []Action{ActionMarkNotified, ActionDecommission}
	case VMOverdueNotified:
		return []Action{ActionDecommission}
	default: // decommissioned
		return nil
	}
}

// IAMActions returns the actions available for an IAM grant in the given
// derived status.
func IAMActions(s Status) []Action {
	switch s {
	case IAMActive, IAMExpired:
		return []Action{ActionSuspend, ActionRevoke}
	case IAMSuspended:
		return []Action{ActionReinstate, ActionRevoke}
	default: // revoked
		return nil
	}
}
