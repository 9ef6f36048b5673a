package shared

// Platform permissions. ADMIN is a superset grant: principals with the
// ADMIN role pass every permission check regardless of explicit grants.
const (
	PermAdmin                    = "ADMIN"
	PermValidateTutorial         = "VALIDATE_TUTORIAL"
	PermBypassTutorialValidation = "BYPASS_TUTORIAL_VALIDATION"
)

// CoreScopes lists every permission the platform seeds.
func CoreScopes() []string {
	return []string{
		PermAdmin,
		PermValidateTutorial,
		PermBypassTutorialValidation,
	}
}
