package models

import "fmt"

// ProfileKind identifies which profile table an invitation targets.
type ProfileKind string

const (
	ProfileEmployee    ProfileKind = "employee"
	ProfileAgent       ProfileKind = "agent"
	ProfileClientAdmin ProfileKind = "client_admin"
	ProfileAffiliate   ProfileKind = "affiliate"
)

// ProfileRef is the tagged union behind the invitation's
// exactly-one-of-four profile columns. Business logic works with this value;
// the four nullable foreign keys are a storage concern.
type ProfileRef struct {
	Kind ProfileKind
	ID   string
}

// Valid reports whether the reference names a known profile kind and id.
func (r ProfileRef) Valid() bool {
	if r.ID == "" {
		return false
	}
	switch r.Kind {
	case ProfileEmployee, ProfileAgent, ProfileClientAdmin, ProfileAffiliate:
		return true
	}
	return false
}

// TableName returns the storage table holding this kind of profile.
func (r ProfileRef) TableName() (string, error) {
	switch r.Kind {
	case ProfileEmployee:
		return "employees", nil
	case ProfileAgent:
		return "agents", nil
	case ProfileClientAdmin:
		return "client_admins", nil
	case ProfileAffiliate:
		return "affiliates", nil
	}
	return "", fmt.Errorf("profile ref: unknown kind %q", r.Kind)
}

func (r ProfileRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}
