package domain

import "strings"

// Service is an entry of the services-available catalog. URLs starting with
// "/" are routes of the guest web application.
type Service struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
	Icon  string `json:"icon"`
}

// IsGuestRoute reports whether the service opens inside the guest web app.
func (s Service) IsGuestRoute() bool {
	return strings.HasPrefix(s.URL, "/")
}

// PlanningRequest is the "pianificazione" contact form.
type PlanningRequest struct {
	Name          string
	Email         string
	Phone         string
	PreferredDate string
	ServiceType   string
	Notes         string
}

// Fields returns the form fields in gateway naming.
func (r PlanningRequest) Fields() map[string]string {
	return map[string]string{
		"name":          r.Name,
		"email":         r.Email,
		"phone":         r.Phone,
		"preferredDate": r.PreferredDate,
		"serviceType":   r.ServiceType,
		"notes":         r.Notes,
	}
}
