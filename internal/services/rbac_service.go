package services

import "sort"

const (
	RoleOwner       = "owner"
	RoleManager     = "manager"
	RoleCashier     = "cashier"
	RoleStorekeeper = "storekeeper"
)

const (
	PermInventoryRead   = "inventory:read"
	PermInventoryWrite  = "inventory:write"
	PermWarehouseRead   = "warehouses:read"
	PermWarehouseWrite  = "warehouses:write"
	PermCatalogRead     = "catalog:read"
	PermCatalogWrite    = "catalog:write"
	PermSalesCreate     = "sales:create"
	PermSalesRead       = "sales:read"
	PermReturnsCreate   = "returns:create"
	PermReturnsDecide   = "returns:decide"
	PermSuppliersWrite  = "suppliers:write"
	PermDepartmentWrite = "departments:write"
	PermSettingsRead    = "settings:read"
	PermSettingsWrite   = "settings:write"
	PermAuditRead       = "audit:read"
	PermAlertsRead      = "alerts:read"
	PermUpload          = "uploads:create"
)

var rolePermissions = map[string][]string{
	RoleManager: {
		PermInventoryRead, PermInventoryWrite, PermWarehouseRead, PermWarehouseWrite,
		PermCatalogRead, PermCatalogWrite, PermSalesCreate, PermSalesRead,
		PermReturnsCreate, PermReturnsDecide, PermSuppliersWrite, PermDepartmentWrite,
		PermSettingsRead, PermAlertsRead, PermUpload,
	},
	RoleCashier: {
		PermCatalogRead, PermInventoryRead, PermSalesCreate, PermSalesRead, PermReturnsCreate,
	},
	RoleStorekeeper: {
		PermInventoryRead, PermInventoryWrite, PermWarehouseRead, PermWarehouseWrite,
		PermCatalogRead, PermAlertsRead, PermUpload,
	},
}

// RBACService answers permission checks for the roles carried in access tokens.
// Roles are fixed; owners hold every permission.
type RBACService interface {
	RoleHasPermission(role, permission string) bool
	RolePermissions(role string) []string
}

type rbacService struct {
	grants map[string]map[string]struct{}
}

func NewRBACService() RBACService {
	grants := make(map[string]map[string]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &rbacService{grants: grants}
}

func (s *rbacService) RoleHasPermission(role, permission string) bool {
	if role == RoleOwner {
		return true
	}
	_, ok := s.grants[role][permission]
	return ok
}

func (s *rbacService) RolePermissions(role string) []string {
	if role == RoleOwner {
		all := map[string]struct{}{PermSettingsWrite: {}, PermAuditRead: {}}
		for _, set := range s.grants {
			for p := range set {
				all[p] = struct{}{}
			}
		}
		return sortedKeys(all)
	}
	return sortedKeys(s.grants[role])
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
