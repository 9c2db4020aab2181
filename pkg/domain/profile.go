package domain

// UserProfile is the cached snapshot of the account returned by the
// profile operation.
type UserProfile struct {
	User     ProfileUser `json:"user"`
	Plans    []Plan      `json:"plans"`
	Partner  *Partner    `json:"partner,omitempty"`
	Consents Consents    `json:"consents"`
}

// ProfileUser holds identity fields of the logged-in account.
type ProfileUser struct {
	ID            FlexInt `json:"id"`
	Name          string  `json:"name"`
	Surname       string  `json:"surname,omitempty"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone,omitempty"`
	Role          FlexInt `json:"role"`
	Status        FlexInt `json:"status"`
	IDCurrentPlan FlexInt `json:"id_current_plan"`
	IDPartner     FlexInt `json:"id_partner"`
}

// DisplayName returns the best human label for the user.
func (u ProfileUser) DisplayName() string {
	switch {
	case u.Name != "" && u.Surname != "":
		return u.Name + " " + u.Surname
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return "Utente"
	}
}

// Plan is a funeral plan owned by the user.
type Plan struct {
	ID        FlexInt `json:"id"`
	Name      string  `json:"name"`
	Status    FlexInt `json:"status"`
	IDPartner FlexInt `json:"id_partner"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// Consents are the privacy flags the user accepted.
type Consents struct {
	Privacy    FlexBool `json:"privacy"`
	Terms      FlexBool `json:"terms"`
	Marketing  FlexBool `json:"marketing"`
	ThirdParty FlexBool `json:"third_party"`
}

// CurrentPlan returns the plan matching IDCurrentPlan, or nil.
func (p *UserProfile) CurrentPlan() *Plan {
	if p == nil || p.User.IDCurrentPlan == 0 {
		return nil
	}
	for i := range p.Plans {
		if p.Plans[i].ID == p.User.IDCurrentPlan {
			return &p.Plans[i]
		}
	}
	return nil
}
