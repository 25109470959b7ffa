package userprofile

import "fmt"

// UserProfile stores the preferred display name for an identity subject.
// It only prefills the claim dialog default; square ownership never reads it.
type UserProfile struct {
	ID          string
	UserID      string
	DisplayName string
	Email       string
}

func (p UserProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.UserID == "" {
		return fmt.Errorf("profile user id is required")
	}
	if p.DisplayName == "" {
		return fmt.Errorf("profile display name is required")
	}
	if p.Email == "" {
		return fmt.Errorf("profile email is required")
	}

	return nil
}
