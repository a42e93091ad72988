package rbac

// Role is a fixed permission grouping. Roles are not user-editable;
// changing a grant is a code change.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleManager     Role = "MANAGER"
	RoleCashier     Role = "CASHIER"
	RoleStorekeeper Role = "STOREKEEPER"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier, RoleStorekeeper:
		return true
	}
	return false
}

// Capability names an atomic permission checked at the HTTP boundary.
const (
	CapMasterdataRead  = "masterdata.read"
	CapMasterdataWrite = "masterdata.write"
	CapInventoryRead   = "inventory.read"
	CapInventoryWrite  = "inventory.write"
	CapSalesRead       = "sales.read"
	CapSalesWrite      = "sales.write"
	CapSalesRefund     = "sales.refund"
	CapLedgerRead      = "ledger.read"
	CapLedgerWrite     = "ledger.write"
	CapAuditRead       = "audit.read"
	CapUsersManage     = "users.manage"
)

var roleCapabilities = map[Role][]string{
	RoleAdmin: {
		CapMasterdataRead, CapMasterdataWrite,
		CapInventoryRead, CapInventoryWrite,
		CapSalesRead, CapSalesWrite, CapSalesRefund,
		CapLedgerRead, CapLedgerWrite,
		CapAuditRead, CapUsersManage,
	},
	RoleManager: {
		CapMasterdataRead, CapMasterdataWrite,
		CapInventoryRead, CapInventoryWrite,
		CapSalesRead, CapSalesWrite, CapSalesRefund,
		CapLedgerRead, CapLedgerWrite,
		CapAuditRead,
	},
	RoleCashier: {
		CapMasterdataRead,
		CapInventoryRead,
		CapSalesRead, CapSalesWrite,
	},
	RoleStorekeeper: {
		CapMasterdataRead,
		CapInventoryRead, CapInventoryWrite,
	},
}

// Capabilities returns the capability set granted by the role. The
// returned slice is a copy.
func Capabilities(r Role) []string {
	caps, ok := roleCapabilities[r]
	if !ok {
		return nil
	}
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}
