package domain

// Partner is a funeral operator registered with the service.
type Partner struct {
	ID             FlexInt  `json:"id"`
	ShopName       string   `json:"shop_name"`
	Description    string   `json:"description,omitempty"`
	FullAddress    string   `json:"full_address"`
	City           string   `json:"city,omitempty"`
	Province       string   `json:"province,omitempty"`
	ZipCode        string   `json:"zip_code,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	URL            string   `json:"url,omitempty"`
	Logo           string   `json:"logo,omitempty"`
	CanManagePlans FlexBool `json:"can_manage_plans"`
	Lat            float64  `json:"lat,omitempty"`
	Lng            float64  `json:"lng,omitempty"`
	DistanceKM     *float64 `json:"distance_km,omitempty"`
}

// PartnerQuery filters a partner-search call.
type PartnerQuery struct {
	Query        string
	City         string
	Province     string
	Distance     int
	Category     string
	Page         int
	ItemsPerPage int
}
