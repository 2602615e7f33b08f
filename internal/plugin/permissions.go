package plugin

import (
	"jotx/internal/domain"
)

// ValidatePermissions checks that every permission declared by the manifest
// is allowed and none are denied.
func ValidatePermissions(manifest domain.PluginManifest, allowed, denied []string) error {
	denySet := make(map[string]bool, len(denied))
	for _, d := range denied {
		denySet[d] = true
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowSet[a] = true
	}

	for _, perm := range manifest.Permissions {
		if denySet[perm] {
			return domain.NewError("plugin.validate_permissions", domain.KindInvalidInput,
				manifest.Name+" requests denied permission "+perm)
		}
		if len(allowSet) > 0 && !allowSet[perm] {
			return domain.NewError("plugin.validate_permissions", domain.KindInvalidInput,
				manifest.Name+" requests unlisted permission "+perm)
		}
	}
	return nil
}
