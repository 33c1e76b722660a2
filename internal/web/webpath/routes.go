package webpath

import "github.com/google/uuid"

const (
	Home       = "/"
	Signup     = "/signup"
	Login      = "/login"
	AdminLogin = "/admin-login"
	Logout     = "/logout"
	Members    = "/members"

	Admin        = "/admin"
	AdminPromote = Admin + "/promote/:id"
	AdminDemote  = Admin + "/demote/:id"

	Metrics = "/metrics"
	Static  = "/static"
)

func Path() map[string]string {
	return map[string]string{
		"Home":       Home,
		"SignUp":     Signup,
		"Login":      Login,
		"AdminLogin": AdminLogin,
		"Logout":     Logout,
		"Members":    Members,
		"Admin":      Admin,
		"Static":     Static,
	}
}

func Promote(id uuid.UUID) string {
	return Admin + "/promote/" + id.String()
}

func Demote(id uuid.UUID) string {
	return Admin + "/demote/" + id.String()
}
