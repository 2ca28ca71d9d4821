// internal/domain/notification/shared_types.go
package notification

// Type is the presentation kind of a notification.
type Type string

const (
	TypeInfo         Type = "info"
	TypeSuccess      Type = "success"
	TypeWarning      Type = "warning"
	TypeError        Type = "error"
	TypeAnnouncement Type = "announcement"
)

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError, TypeAnnouncement:
		return true
	}
	return false
}

// TargetAudience selects how recipients are resolved.
type TargetAudience string

const (
	AudienceAllUsers        TargetAudience = "all_users"
	AudienceSpecificRoles   TargetAudience = "specific_roles"
	AudienceIndividualUsers TargetAudience = "individual_users"
)

func (a TargetAudience) Valid() bool {
	switch a {
	case AudienceAllUsers, AudienceSpecificRoles, AudienceIndividualUsers:
		return true
	}
	return false
}
