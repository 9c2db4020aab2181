package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tramontosereno/sereno/pkg/domain"
	"github.com/tramontosereno/sereno/pkg/signer"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api") != OpLogin {
			http.NotFound(w, r)
			return
		}
		if v := r.Header.Get(signer.HeaderToken); v != "" {
			t.Errorf("X-ipac = %q, want empty on login", v)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		form := r.MultipartForm.Value
		if _, ok := form["token"]; ok {
			t.Error("login must not send a token field")
		}
		if form["email"][0] != "a@b.it" || form["role"][0] != "user" || form["os"][0] != "linux 6.1" {
			t.Errorf("form = %v", form)
		}
		writeJSON(w, map[string]any{"result": "ok", "data": map[string]any{"token": "abc", "role": "100", "status": 310}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "stale", &recordingNotifier{})
	sess, err := c.Login(context.Background(), LoginRequest{
		Email:    "a@b.it",
		Password: "pw",
		Role:     domain.RoleHintUser,
		Device:   domain.DeviceInfo{Device: "host", OS: "linux 6.1", Browser: "App", UserAgent: "Sereno/1.0"},
	})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	want := domain.Session{Token: "abc", Role: 100, Status: 310}
	if *sess != want {
		t.Errorf("session = %+v, want %+v", *sess, want)
	}
}

func TestLogin_RoleHint(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"", "user"},
		{domain.RoleHintUser, "user"},
		{domain.RoleHintPartner, "partner"},
	}
	for _, tt := range tests {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.FormValue("role")
			writeJSON(w, map[string]any{"result": "ok", "data": map[string]any{"token": "abc", "role": 150, "status": 310}})
		}))
		c := newTestClient(srv.URL, "", &recordingNotifier{})
		if _, err := c.Login(context.Background(), LoginRequest{Email: "a@b.it", Password: "pw", Role: tt.hint}); err != nil {
			t.Errorf("Login(%q) error: %v", tt.hint, err)
		}
		srv.Close()
		if got != tt.want {
			t.Errorf("Login(%q) sent role %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func TestLogin_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"result": "error", "message": "Credenziali non valide", "status": 401})
	}))
	defer srv.Close()

	n := &recordingNotifier{}
	c := newTestClient(srv.URL, "", n)
	_, err := c.Login(context.Background(), LoginRequest{Email: "a@b.it", Password: "x"})
	if !IsStatus(err, 401) {
		t.Fatalf("error = %v, want status 401", err)
	}
	if n.count() != 0 {
		t.Errorf("login failures must not hit the notifier, got %d", n.count())
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
		wantErr bool
	}{
		{
			name: "accepted",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"result": "ok"})
			},
			want: true,
		},
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"result": "error", "message": "invalid token"})
			},
			want: false,
		},
		{
			name: "server down",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(srv.URL, "abc", &recordingNotifier{})
			got, err := c.ValidateToken(context.Background(), "abc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(signer.HeaderToken) != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"result": "ok", "data": map[string]any{
			"user":  map[string]any{"id": "7", "name": "Anna", "role": 100, "id_current_plan": "3"},
			"plans": []any{map[string]any{"id": 3, "name": "Piano base"}},
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "abc", &recordingNotifier{})
	p, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error: %v", err)
	}
	if p.User.ID != 7 || p.User.DisplayName() != "Anna" {
		t.Errorf("user = %+v", p.User)
	}
	if cp := p.CurrentPlan(); cp == nil || cp.Name != "Piano base" {
		t.Errorf("CurrentPlan() = %+v", cp)
	}
}

func TestPartnerSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api") != OpPartnerSearch || q.Get("category") != "funeral_operator" ||
			q.Get("excludeExternal") != "0" || q.Get("city") != "Torino" || q.Get("page") != "2" {
			t.Errorf("query = %v", q)
		}
		if q.Has("distance") {
			t.Error("zero distance should be omitted")
		}
		writeJSON(w, map[string]any{"result": "ok", "count": 41, "data": []any{
			map[string]any{"id": 1, "shop_name": "Onoranze Rossi", "can_manage_plans": "1"},
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "", &recordingNotifier{})
	page, err := c.PartnerSearch(context.Background(), domain.PartnerQuery{City: "Torino", Page: 2})
	if err != nil {
		t.Fatalf("PartnerSearch() error: %v", err)
	}
	if page.Total != 41 || len(page.Partners) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if p := page.Partners[0]; p.ShopName != "Onoranze Rossi" || !bool(p.CanManagePlans) {
		t.Errorf("partner = %+v", p)
	}
}

func TestPartnerGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodGet || q.Get("api") != OpPartnerGet || q.Get("id") != "42" {
			t.Errorf("%s %s, want GET api=%s id=42", r.Method, r.URL, OpPartnerGet)
		}
		writeJSON(w, map[string]any{"result": "ok", "data": map[string]any{
			"id": "42", "shop_name": "Onoranze Rossi", "phone": "011 555", "can_manage_plans": true,
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "", &recordingNotifier{})
	p, err := c.PartnerGet(context.Background(), 42)
	if err != nil {
		t.Fatalf("PartnerGet() error: %v", err)
	}
	if p.ID != 42 || p.ShopName != "Onoranze Rossi" || p.Phone != "011 555" || !bool(p.CanManagePlans) {
		t.Errorf("partner = %+v", p)
	}
}

func TestSubmitPlanning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("api") != OpPlanning {
			t.Errorf("%s %s, want POST api=%s", r.Method, r.URL, OpPlanning)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		form := r.MultipartForm.Value
		want := map[string]string{
			"token":         "abc",
			"name":          "Anna Bianchi",
			"email":         "anna@example.it",
			"preferredDate": "2026-11-03",
			"serviceType":   "cremazione",
		}
		for k, v := range want {
			if got := form[k]; len(got) != 1 || got[0] != v {
				t.Errorf("%s = %v, want %q", k, got, v)
			}
		}
		for _, k := range []string{"phone", "notes"} {
			if _, ok := form[k]; ok {
				t.Errorf("empty field %s was sent", k)
			}
		}
		writeJSON(w, map[string]any{"result": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "abc", &recordingNotifier{})
	err := c.SubmitPlanning(context.Background(), domain.PlanningRequest{
		Name:          "Anna Bianchi",
		Email:         "anna@example.it",
		PreferredDate: "2026-11-03",
		ServiceType:   "cremazione",
	})
	if err != nil {
		t.Fatalf("SubmitPlanning() error: %v", err)
	}
}

func TestDeleteAccount_SendsPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("password") != "secret" || r.FormValue("token") != "abc" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		writeJSON(w, map[string]any{"result": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "abc", &recordingNotifier{})
	if err := c.DeleteAccount(context.Background(), "secret"); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
}
