package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base:
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - project: overlay fields win when set
//   - roots: merge by id, same id in overlay replaces base entry entirely
//   - policies: merge by platform name, overlay wins
//   - ordering: overlay slot lists replace base lists when set
//   - toolchain.installed: overlay replaces base when set
//   - toolchain.targets: merge by platform, overlay wins
//   - toolchain.hot_reload: concatenate (base first, then overlay)
//   - build: overlay wins when it enables stop_on_failure
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	result.Project = base.Project
	if overlay.Project.Output != "" {
		result.Project.Output = overlay.Project.Output
	}
	if overlay.Project.State != "" {
		result.Project.State = overlay.Project.State
	}

	result.Roots = mergeRoots(base.Roots, overlay.Roots)
	result.Policies = mergePolicies(base.Policies, overlay.Policies)

	result.Ordering = base.Ordering
	if len(overlay.Ordering.Priority) > 0 {
		result.Ordering.Priority = overlay.Ordering.Priority
	}
	if len(overlay.Ordering.Terminal) > 0 {
		result.Ordering.Terminal = overlay.Ordering.Terminal
	}

	result.Toolchain.Installed = base.Toolchain.Installed
	if len(overlay.Toolchain.Installed) > 0 {
		result.Toolchain.Installed = overlay.Toolchain.Installed
	}
	result.Toolchain.Targets = mergeTargets(base.Toolchain.Targets, overlay.Toolchain.Targets)
	result.Toolchain.HotReload = append(result.Toolchain.HotReload, base.Toolchain.HotReload...)
	result.Toolchain.HotReload = append(result.Toolchain.HotReload, overlay.Toolchain.HotReload...)

	result.Build.StopOnFailure = base.Build.StopOnFailure || overlay.Build.StopOnFailure

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}

func mergeRoots(base, overlay []Root) []Root {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	replaced := make(map[string]bool, len(overlay))
	for _, r := range overlay {
		replaced[r.ID] = true
	}

	var result []Root
	for _, r := range base {
		if !replaced[r.ID] {
			result = append(result, r)
		}
	}
	return append(result, overlay...)
}

func mergePolicies(base, overlay map[string]PlatformPolicy) map[string]PlatformPolicy {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}

	result := make(map[string]PlatformPolicy, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v // overlay wins
	}
	return result
}

func mergeTargets(base, overlay []TargetDefinition) []TargetDefinition {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	replaced := make(map[string]bool, len(overlay))
	for _, td := range overlay {
		replaced[td.Platform] = true
	}

	var result []TargetDefinition
	for _, td := range base {
		if !replaced[td.Platform] {
			result = append(result, td)
		}
	}
	return append(result, overlay...)
}
