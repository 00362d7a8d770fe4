package status

import "regexp"

// Reason wraps a raw status reason string and offers structured detail where
// the string matches one of the shapes the remote system is known to emit.
type Reason string

var (
	reasonCancelled = regexp.MustCompile(`(?i)resource creation cancelled`)

	// Two observed shapes for permission failures: a bare "API: svc:Op ..."
	// prefix, and the longer "User: <arn> is not authorized to perform: svc:Op"
	// form which also names the principal.
	reasonPermissionAPI       = regexp.MustCompile(`(?i)API: (?P<permission>[a-z0-9]+:[a-z0-9]+)\b`)
	reasonPermissionPrincipal = regexp.MustCompile(`(?i)User: (?P<principal>[a-z0-9:/-]+) is not authorized to perform: (?P<permission>[a-z0-9]+:[a-z0-9]+)`)

	reasonResourceErrors = regexp.MustCompile(`(?i)the following resource\(s\) failed to (?:create|delete|update): \[(?P<ids>[a-z0-9]+(?:, *[a-z0-9]+)*)\]`)

	logicalIDPattern = regexp.MustCompile(`(?i)[a-z0-9]+`)
)

// String returns the raw reason.
func (r Reason) String() string {
	return string(r)
}

// Detail attempts to parse the reason into a ReasonDetail. It returns nil when
// the reason does not match any recognized shape.
func (r Reason) Detail() *ReasonDetail {
	s := string(r)
	if s == "" {
		return nil
	}
	if reasonCancelled.MatchString(s) {
		return &ReasonDetail{Kind: ReasonCreationCancelled}
	}
	if m := reasonPermissionPrincipal.FindStringSubmatch(s); m != nil {
		return &ReasonDetail{
			Kind:       ReasonMissingPermission,
			Permission: m[reasonPermissionPrincipal.SubexpIndex("permission")],
			Principal:  m[reasonPermissionPrincipal.SubexpIndex("principal")],
		}
	}
	if m := reasonPermissionAPI.FindStringSubmatch(s); m != nil {
		return &ReasonDetail{
			Kind:       ReasonMissingPermission,
			Permission: m[reasonPermissionAPI.SubexpIndex("permission")],
		}
	}
	if m := reasonResourceErrors.FindStringSubmatch(s); m != nil {
		return &ReasonDetail{
			Kind:       ReasonResourceErrors,
			FailedUnits: logicalIDPattern.FindAllString(
				m[reasonResourceErrors.SubexpIndex("ids")], -1),
		}
	}
	return nil
}

// ReasonKind identifies the recognized shapes of status reasons.
type ReasonKind string

const (
	// ReasonCreationCancelled means resource creation was cancelled, usually
	// because an earlier resource failed.
	ReasonCreationCancelled ReasonKind = "creation_cancelled"

	// ReasonMissingPermission means the remote principal lacked a permission.
	ReasonMissingPermission ReasonKind = "missing_permission"

	// ReasonResourceErrors means the operation failed because named resources
	// failed.
	ReasonResourceErrors ReasonKind = "resource_errors"
)

// ReasonDetail is the structured form of a recognized status reason.
type ReasonDetail struct {
	// Kind identifies which shape was recognized.
	Kind ReasonKind

	// Permission is the missing permission, for ReasonMissingPermission.
	Permission string

	// Principal is the remote principal that lacked the permission, when the
	// reason names one.
	Principal string

	// FailedUnits lists the logical IDs of failed resources, for
	// ReasonResourceErrors.
	FailedUnits []string
}
