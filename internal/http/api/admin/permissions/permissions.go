// Package permissions defines the catalog of permission-gated admin routes
// and helpers for storing and checking per-admin grants.
//
// A grant is either a route key ("GET /v0/admin/orgs"), a module name
// ("organizations") covering every route in that module, or the wildcard "*".
// Super admins bypass the catalog entirely in the middleware.
package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Wildcard grants every permission.
const Wildcard = "*"

// Module names group related routes for assignment and display.
const (
	ModuleOrganizations = "organizations"
	ModuleQuotaLimits   = "quota_limits"
	ModuleQuotaTypes    = "quota_types"
	ModuleUsage         = "usage"
	ModuleEvents        = "events"
	ModuleSettings      = "settings"
	ModuleAdmins        = "admins"
)

// Definition describes one permission-gated admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
}

var definitions = buildDefinitions()

func buildDefinitions() []Definition {
	defs := []Definition{
		{Method: http.MethodGet, Path: "/v0/admin/orgs", Label: "List organizations", Module: ModuleOrganizations},
		{Method: http.MethodPost, Path: "/v0/admin/orgs", Label: "Create organization", Module: ModuleOrganizations},
		{Method: http.MethodGet, Path: "/v0/admin/orgs/:id", Label: "View organization", Module: ModuleOrganizations},
		{Method: http.MethodPut, Path: "/v0/admin/orgs/:id", Label: "Update organization", Module: ModuleOrganizations},
		{Method: http.MethodPost, Path: "/v0/admin/orgs/:id/regenerate-key", Label: "Regenerate organization API key", Module: ModuleOrganizations},

		{Method: http.MethodGet, Path: "/v0/admin/orgs/:id/quotas", Label: "View organization quota overview", Module: ModuleQuotaLimits},
		{Method: http.MethodPut, Path: "/v0/admin/orgs/:id/quotas/:name", Label: "Set or clear organization quota limit", Module: ModuleQuotaLimits},

		{Method: http.MethodGet, Path: "/v0/admin/quota-types", Label: "List quota types", Module: ModuleQuotaTypes},
		{Method: http.MethodPut, Path: "/v0/admin/quota-types/:name", Label: "Update quota type defaults", Module: ModuleQuotaTypes},

		{Method: http.MethodGet, Path: "/v0/admin/usage", Label: "Browse usage records", Module: ModuleUsage},

		{Method: http.MethodGet, Path: "/v0/admin/events", Label: "Browse quota events", Module: ModuleEvents},

		{Method: http.MethodGet, Path: "/v0/admin/settings", Label: "View settings", Module: ModuleSettings},
		{Method: http.MethodPut, Path: "/v0/admin/settings", Label: "Update settings", Module: ModuleSettings},

		{Method: http.MethodGet, Path: "/v0/admin/admins", Label: "List admins", Module: ModuleAdmins},
		{Method: http.MethodPost, Path: "/v0/admin/admins", Label: "Create admin", Module: ModuleAdmins},
		{Method: http.MethodGet, Path: "/v0/admin/admins/:id", Label: "View admin", Module: ModuleAdmins},
		{Method: http.MethodPut, Path: "/v0/admin/admins/:id", Label: "Update admin", Module: ModuleAdmins},
		{Method: http.MethodDelete, Path: "/v0/admin/admins/:id", Label: "Delete admin", Module: ModuleAdmins},
		{Method: http.MethodPut, Path: "/v0/admin/admins/:id/password", Label: "Change admin password", Module: ModuleAdmins},
	}
	for i := range defs {
		defs[i].Key = Key(defs[i].Method, defs[i].Path)
	}
	return defs
}

// Key builds the canonical permission key for a route.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns all permission definitions in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap returns definitions keyed by their route key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// Modules returns the known module names in display order.
func Modules() []string {
	seen := make(map[string]struct{}, len(definitions))
	out := make([]string, 0, len(definitions))
	for _, def := range definitions {
		if _, ok := seen[def.Module]; ok {
			continue
		}
		seen[def.Module] = struct{}{}
		out = append(out, def.Module)
	}
	return out
}

// ParsePermissions decodes a stored permissions column into a grant list.
// Malformed data yields an empty list rather than an error so a corrupt row
// never grants anything.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var perms []string
	if errUnmarshal := json.Unmarshal(raw, &perms); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(perms)
}

// NormalizePermissions trims entries, drops empties and duplicates, and sorts
// the result into canonical order.
func NormalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions checks that every grant names the wildcard, a known
// module or a known route key.
func ValidatePermissions(perms []string) error {
	defMap := DefinitionMap()
	modules := make(map[string]struct{})
	for _, def := range definitions {
		modules[def.Module] = struct{}{}
	}
	for _, perm := range perms {
		if perm == Wildcard {
			continue
		}
		if _, ok := modules[perm]; ok {
			continue
		}
		if _, ok := defMap[perm]; ok {
			continue
		}
		return fmt.Errorf("permissions: unknown permission %q", perm)
	}
	return nil
}

// MarshalPermissions encodes a grant list for storage. A nil list encodes as
// an empty JSON array.
func MarshalPermissions(perms []string) ([]byte, error) {
	if perms == nil {
		perms = []string{}
	}
	return json.Marshal(perms)
}

// HasPermission reports whether the grant list covers the given route key.
func HasPermission(perms []string, key string) bool {
	def, known := DefinitionMap()[key]
	for _, perm := range perms {
		if perm == Wildcard {
			return true
		}
		if perm == key {
			return true
		}
		if known && perm == def.Module {
			return true
		}
	}
	return false
}
