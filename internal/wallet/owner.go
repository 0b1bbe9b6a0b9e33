package wallet

// Role identifies which side of the marketplace a wallet belongs to.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleDriver   Role = "driver"
	RolePlatform Role = "platform"
)

// PlatformOwnerID is the fixed owner id of the single platform wallet that
// collects commission.
const PlatformOwnerID = "PLATFORM"

// Owner addresses one wallet. The (Role, ID) pair is the account key, so the
// same user id can hold separate wallets under different roles.
type Owner struct {
	Role Role
	ID   string
}

func (o Owner) String() string { return string(o.Role) + ":" + o.ID }

func Customer(id string) Owner { return Owner{Role: RoleCustomer, ID: id} }
func Vendor(id string) Owner   { return Owner{Role: RoleVendor, ID: id} }
func Driver(id string) Owner   { return Owner{Role: RoleDriver, ID: id} }
func Platform() Owner          { return Owner{Role: RolePlatform, ID: PlatformOwnerID} }

// OwnerForRole maps an authenticated (role, user id) pair onto a wallet.
// Unknown roles fall back to the platform wallet rather than failing, so
// admin-initiated operations always have an account to act on.
func OwnerForRole(role Role, userID string) Owner {
	switch role {
	case RoleCustomer, RoleVendor, RoleDriver:
		return Owner{Role: role, ID: userID}
	default:
		return Platform()
	}
}
