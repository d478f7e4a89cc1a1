package reconcile

// User is the reconciled account shape.
type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email,omitempty"`
	DisplayName   *string `json:"displayName,omitempty"`
	Username      *string `json:"username,omitempty"`
	IsCreator     bool    `json:"isCreator"`
	EmailVerified bool    `json:"emailVerified"`
}

// userSources are tried in order. The root comes last so that a wrapped
// user object wins over stray top-level keys.
var userSources = []string{"data.user", "result.user", "user", "result", "data", ""}

var (
	userID            = Aliases(userSources, "_id", "id", "user_id", "userId")
	userEmail         = Aliases(userSources, "email")
	userDisplayName   = Aliases(userSources, "full_name", "fullName", "name", "displayName")
	userUsername      = Aliases(userSources, "username")
	userIsCreator     = Aliases(userSources, "is_creator", "isCreator")
	userEmailVerified = Aliases(userSources, "email_verified", "emailVerified")
)

// ReconcileUser builds a User from any of the backend's user payload shapes.
// Booleans default to false only when none of their aliases is present.
func ReconcileUser(p Payload) User {
	var u User
	u.ID, _ = Lookup(p, userID, asNonEmptyString)
	u.Email, _ = Lookup(p, userEmail, asString)
	u.DisplayName = optional(Lookup(p, userDisplayName, asString))
	u.Username = optional(Lookup(p, userUsername, asString))
	u.IsCreator, _ = Lookup(p, userIsCreator, asBool)
	u.EmailVerified, _ = Lookup(p, userEmailVerified, asBool)
	return u
}

// Payload renders the canonical form of u. Absent optional fields are left
// out, and every key is one of the aliases ReconcileUser reads.
func (u User) Payload() Payload {
	p := Payload{
		"id":            u.ID,
		"isCreator":     u.IsCreator,
		"emailVerified": u.EmailVerified,
	}
	if u.Email != "" {
		p["email"] = u.Email
	}
	if u.DisplayName != nil {
		p["displayName"] = *u.DisplayName
	}
	if u.Username != nil {
		p["username"] = *u.Username
	}
	return p
}

// Found reports whether the payload carried a user at all.
func (u User) Found() bool {
	return u.ID != ""
}
