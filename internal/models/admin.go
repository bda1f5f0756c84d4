package models

const (
	// AdminUsername logs in to the administrative session. It is never a User.
	AdminUsername = "admin"
	// StockUsername is the protected account provisioned on first run.
	StockUsername = "stock"
	// StockAlbumName is the album the stock user is provisioned with.
	StockAlbumName = "stock"
)

// Admin is the roster of every valid username.
type Admin struct {
	usernames []string
}

// NewAdmin creates a roster holding only the stock user.
func NewAdmin() *Admin {
	return &Admin{usernames: []string{StockUsername}}
}

// RestoreAdmin rebuilds a roster from persisted usernames, dropping
// duplicates and the reserved admin name.
func RestoreAdmin(usernames []string) *Admin {
	a := &Admin{}
	for _, name := range usernames {
		a.AddUsername(name)
	}
	return a
}

// Usernames returns the roster in insertion order.
func (a *Admin) Usernames() []string {
	out := make([]string, len(a.usernames))
	copy(out, a.usernames)
	return out
}

// Contains reports whether name is on the roster.
func (a *Admin) Contains(name string) bool {
	for _, existing := range a.usernames {
		if existing == name {
			return true
		}
	}
	return false
}

// AddUsername adds name. It fails for duplicates and the admin name.
func (a *Admin) AddUsername(name string) bool {
	if name == AdminUsername || a.Contains(name) {
		return false
	}
	a.usernames = append(a.usernames, name)
	return true
}

// RemoveUsername removes name, returning false if it was not listed.
func (a *Admin) RemoveUsername(name string) bool {
	for i, existing := range a.usernames {
		if existing == name {
			a.usernames = append(a.usernames[:i], a.usernames[i+1:]...)
			return true
		}
	}
	return false
}
